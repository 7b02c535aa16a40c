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

// Package log provides the structured logger used by the CLI commands,
// backed by zap.
package log

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging key/value pair.
type Field = zap.Field

func String(k, v string) Field   { return zap.String(k, v) }
func Int(k string, v int) Field  { return zap.Int(k, v) }
func Err(err error) Field        { return zap.Error(err) }
func Duration(k string, v any) Field {
	return zap.Any(k, v)
}

// Logger is the logging surface used across this codebase.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type zapLogger struct {
	l *zap.Logger
}

func (z *zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, fields...) }
func (z *zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, fields...) }
func (z *zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, fields...) }
func (z *zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, fields...) }
func (z *zapLogger) With(fields ...Field) Logger       { return &zapLogger{l: z.l.With(fields...)} }

func levelFromString(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("log level must be one of 'debug', 'info', 'warn', or 'error', got %q", s)
	}
}

// NewStructuredLogger returns a JSON-encoded Logger writing to out/errOut.
func NewStructuredLogger(out, errOut io.Writer, levelStr string) (Logger, error) {
	lvl, err := levelFromString(levelStr)
	if err != nil {
		return nil, err
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(out), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l < zapcore.ErrorLevel
		})),
		zapcore.NewCore(enc, zapcore.AddSync(errOut), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l >= zapcore.ErrorLevel
		})),
	)
	return &zapLogger{l: zap.New(core)}, nil
}

// NewStdLogger returns a human-readable console Logger writing to out/errOut.
func NewStdLogger(out, errOut io.Writer, levelStr string) (Logger, error) {
	lvl, err := levelFromString(levelStr)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	enc := zapcore.NewConsoleEncoder(cfg)
	core := zapcore.NewTee(
		zapcore.NewCore(enc, zapcore.AddSync(out), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l < zapcore.ErrorLevel
		})),
		zapcore.NewCore(enc, zapcore.AddSync(errOut), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= lvl && l >= zapcore.ErrorLevel
		})),
	)
	return &zapLogger{l: zap.New(core)}, nil
}

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the Logger stored by WithLogger, or a no-op logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return NewNop()
}

// NewNop returns a Logger that discards everything, used as a safe default.
func NewNop() Logger {
	return &zapLogger{l: zap.NewNop()}
}
