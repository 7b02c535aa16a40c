// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/qgl-project/querygraph/internal/exec"
	"github.com/qgl-project/querygraph/internal/log"
	"github.com/qgl-project/querygraph/internal/qgl"
	"github.com/qgl-project/querygraph/internal/telemetry"
	qgltrace "github.com/qgl-project/querygraph/internal/telemetry/trace"
	"github.com/qgl-project/querygraph/internal/value"
)

func newRunCmd(root *Command) *cobra.Command {
	var params []string
	var watch bool
	var output string

	runCmd := &cobra.Command{
		Use:   "run <file.qgl>",
		Short: "Build a QGL document's graph, execute it, and print the resulting frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runMain(c, root, args[0], params, output, watch)
		},
	}
	runCmd.Flags().StringArrayVar(&params, "param", nil, "Independent parameter as name[:type]=value; may be repeated.")
	runCmd.Flags().BoolVar(&watch, "watch", false, "Rebuild and re-run whenever the QGL file changes.")
	runCmd.Flags().StringVar(&output, "output", "table", "Output format for the result frame: 'table' or 'json'.")
	return runCmd
}

func runMain(c *cobra.Command, root *Command, path string, rawParams []string, output string, watch bool) error {
	if err := root.buildLogger(); err != nil {
		return err
	}

	ctx := c.Context()
	otelShutdown, err := telemetry.SetupOTel(ctx, versionString)
	if err != nil {
		return fmt.Errorf("unable to set up OpenTelemetry: %w", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			root.logger.Error("error shutting down OpenTelemetry", log.Err(err))
		}
	}()
	if err := telemetry.SetMeter(versionString); err != nil {
		return fmt.Errorf("unable to set up meter: %w", err)
	}
	qgltrace.SetTracer(versionString)

	params, err := parseParams(rawParams)
	if err != nil {
		return err
	}

	runOnce := func() error {
		return runGraph(ctx, root, path, params, output)
	}

	if !watch {
		return runOnce()
	}
	return runWatch(ctx, root, path, runOnce)
}

func runGraph(ctx context.Context, root *Command, path string, params map[string]value.Value, output string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %q: %w", path, err)
	}

	g, err := qgl.BuildGraph(ctx, string(src))
	if err != nil {
		return err
	}
	telemetry.GraphBuildCounter().Add(ctx, 1)

	registry, err := qgl.InitializeConnectors(ctx, qgltrace.Tracer(), g)
	if err != nil {
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			root.logger.Error("error closing connectors", log.Err(err))
		}
	}()

	result, err := exec.Execute(ctx, g, registry, params)
	if err != nil {
		return err
	}

	return writeFrame(root.outStream, result, output)
}

func runWatch(ctx context.Context, root *Command, path string, runOnce func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to start file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("unable to watch %q: %w", path, err)
	}

	if err := runOnce(); err != nil {
		root.logger.Error("run failed", log.String("file", path), log.Err(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			root.logger.Info("qgl file changed, re-running", log.String("file", path))
			if err := runOnce(); err != nil {
				root.logger.Error("run failed", log.String("file", path), log.Err(err))
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			root.logger.Error("watcher error", log.Err(werr))
		}
	}
}
