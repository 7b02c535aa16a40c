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

// Package qgerr defines the error-kind taxonomy shared by every component,
// following the (Kind, Node, Stage, Cause) shape the spec requires.
package qgerr

import "fmt"

// Kind identifies one of the error categories from the spec's error taxonomy.
type Kind string

const (
	KindQglSyntax           Kind = "QglSyntaxError"
	KindGraphConfig         Kind = "GraphConfigError"
	KindCycle               Kind = "CycleError"
	KindIndependentParam    Kind = "IndependentParameterError"
	KindDependentParam      Kind = "DependentParameterError"
	KindExpr                Kind = "ExprError"
	KindExprFunc            Kind = "ExprFuncError"
	KindManipulation        Kind = "ManipulationError"
	KindConnector           Kind = "ConnectorError"
	KindCancelled           Kind = "CancelledError"
	KindDeadlineExceeded    Kind = "DeadlineExceededError"
	KindFormat              Kind = "FormatError"
)

// Error is the concrete error type carried across component boundaries. All
// fields besides Kind and Message are optional context.
type Error struct {
	Kind    Kind
	Node    string
	Stage   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Node != "" && e.Stage != "":
		return fmt.Sprintf("%s: node %q stage %q: %s", e.Kind, e.Node, e.Stage, e.detail())
	case e.Node != "":
		return fmt.Sprintf("%s: node %q: %s", e.Kind, e.Node, e.detail())
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.detail())
	}
}

func (e *Error) detail() string {
	if e.Cause != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, so callers can
// use errors.Is(err, qgerr.New(KindCycle, "")) style checks.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a bare *Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds a bare *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// WithNode returns a copy of e annotated with the failing node's name.
func (e *Error) WithNode(node string) *Error {
	c := *e
	c.Node = node
	return &c
}

// WithStage returns a copy of e annotated with the failing pipeline stage.
func (e *Error) WithStage(stage string) *Error {
	c := *e
	c.Stage = stage
	return &c
}

// OfKind reports whether err (or something it wraps) is a *Error of kind k.
func OfKind(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == k {
				return true
			}
			err = e.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
