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

package qgl

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/qgl-project/querygraph/internal/qgerr"
	"github.com/qgl-project/querygraph/internal/sources"
)

// InitializeConnectors dials every CONNECT entry's driver and returns the
// resulting Connector Registry, mirroring the teacher's source-initialization
// loop in server.go: each entry gets its own connect span, and the first
// failure aborts the rest.
func InitializeConnectors(ctx context.Context, tracer trace.Tracer, g *Graph) (*sources.Registry, error) {
	named := make([]sources.Named, 0, len(g.connectOrder))
	for _, entry := range g.connectOrder {
		conn, err := entry.config.Initialize(ctx, tracer)
		if err != nil {
			return nil, qgerr.Wrap(qgerr.KindConnector, fmt.Errorf("unable to initialize connector %q: %w", entry.name, err)).WithNode(entry.name)
		}
		named = append(named, sources.Named{Name: entry.name, Connector: conn})
	}
	registry, err := sources.NewRegistry(named)
	if err != nil {
		return nil, err
	}
	return registry, nil
}
