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

// Package cmd implements the querygraph CLI: building and running a QGL
// document's graph against live connectors.
package cmd

import (
	_ "embed"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qgl-project/querygraph/internal/log"
)

var (
	//go:embed version.txt
	versionString  string
	metadataString string
)

func init() {
	versionString = semanticVersion()
}

func semanticVersion() string {
	v := strings.TrimSpace(versionString)
	if metadataString != "" {
		v += "+" + metadataString
	}
	return v
}

// Execute adds all child commands to the root command and runs it. It only
// needs to be called once, from main.main.
func Execute() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command represents one invocation of the CLI.
type Command struct {
	*cobra.Command

	logLevel  string
	logFormat string

	logger    log.Logger
	outStream io.Writer
	errStream io.Writer
}

// Option configures a Command during construction.
type Option func(*Command)

// NewCommand returns a Command wired with the run and validate subcommands.
func NewCommand(opts ...Option) *Command {
	baseCmd := &cobra.Command{
		Use:           "querygraph",
		Short:         "Build and run QueryGraph Language (QGL) documents",
		Version:       versionString,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd := &Command{
		Command:   baseCmd,
		outStream: os.Stdout,
		errStream: os.Stderr,
	}
	for _, o := range opts {
		o(cmd)
	}
	baseCmd.SetOut(cmd.outStream)
	baseCmd.SetErr(cmd.errStream)

	flags := cmd.PersistentFlags()
	flags.StringVar(&cmd.logLevel, "log-level", "info", "Minimum level logged. Allowed: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&cmd.logFormat, "log-format", "standard", "Logging format to use. Allowed: 'standard' or 'json'.")

	cmd.AddCommand(newRunCmd(cmd))
	cmd.AddCommand(newValidateCmd(cmd))

	return cmd
}

func (c *Command) buildLogger() error {
	var logger log.Logger
	var err error
	switch strings.ToLower(c.logFormat) {
	case "json":
		logger, err = log.NewStructuredLogger(c.outStream, c.errStream, c.logLevel)
	case "standard", "":
		logger, err = log.NewStdLogger(c.outStream, c.errStream, c.logLevel)
	default:
		return &unknownLogFormatError{c.logFormat}
	}
	if err != nil {
		return err
	}
	c.logger = logger
	return nil
}

type unknownLogFormatError struct{ format string }

func (e *unknownLogFormatError) Error() string {
	return "log format must be one of 'standard' or 'json', got " + e.format
}
