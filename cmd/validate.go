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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qgl-project/querygraph/internal/log"
	"github.com/qgl-project/querygraph/internal/qgl"
	"github.com/qgl-project/querygraph/internal/telemetry"
)

func newValidateCmd(root *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.qgl>",
		Short: "Parse and structurally validate a QGL document without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return validate(c, root, args[0])
		},
	}
}

func validate(c *cobra.Command, root *Command, path string) error {
	if err := root.buildLogger(); err != nil {
		return err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read %q: %w", path, err)
	}

	g, err := qgl.BuildGraph(c.Context(), string(src))
	if err != nil {
		root.logger.Error("graph validation failed", log.String("file", path), log.Err(err))
		return err
	}
	telemetry.GraphBuildCounter().Add(c.Context(), 1)

	root.logger.Info("graph is valid",
		log.String("file", path),
		log.String("root", g.Root.Name),
		log.Int("nodes", len(g.NodeNames())),
	)
	fmt.Fprintf(root.outStream, "ok: %d node(s), root %q\n", len(g.NodeNames()), g.Root.Name)
	return nil
}
