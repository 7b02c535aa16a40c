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

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	InstrumentationName = "github.com/qgl-project/querygraph/internal/telemetry"

	graphBuildCountName     = "querygraph.graph.build.count"
	nodeExecuteCountName    = "querygraph.node.execute.count"
	connectorErrorCountName = "querygraph.connector.error.count"
	activeNodeUpDownCount   = "querygraph.node.active"
)

var (
	meter                   = otel.Meter("")
	graphBuildCounter       metric.Int64Counter
	nodeExecuteCounter      metric.Int64Counter
	connectorErrorCounter   metric.Int64Counter
	activeNodeUpDownCounter metric.Int64UpDownCounter
)

// init creates the counters against the no-op global meter so callers never
// observe a nil instrument before SetMeter is called during startup.
func init() {
	if err := createCustomMetrics(); err != nil {
		panic(err)
	}
}

// SetMeter sets the meter with an instrumentation name and version, and
// (re)creates the package's counters against it.
func SetMeter(versionString string) error {
	meter = otel.Meter(InstrumentationName, metric.WithInstrumentationVersion(versionString))
	return createCustomMetrics()
}

// Meter retrieves the package meter.
func Meter() metric.Meter {
	return meter
}

func createCustomMetrics() error {
	var err error
	graphBuildCounter, err = meter.Int64Counter(
		graphBuildCountName,
		metric.WithDescription("Number of QGL graphs built."),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return fmt.Errorf("unable to create %s metric: %w", graphBuildCountName, err)
	}

	nodeExecuteCounter, err = meter.Int64Counter(
		nodeExecuteCountName,
		metric.WithDescription("Number of QueryNode executions."),
		metric.WithUnit("{execution}"),
	)
	if err != nil {
		return fmt.Errorf("unable to create %s metric: %w", nodeExecuteCountName, err)
	}

	connectorErrorCounter, err = meter.Int64Counter(
		connectorErrorCountName,
		metric.WithDescription("Number of connector errors encountered during execution."),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("unable to create %s metric: %w", connectorErrorCountName, err)
	}

	activeNodeUpDownCounter, err = meter.Int64UpDownCounter(
		activeNodeUpDownCount,
		metric.WithDescription("Number of QueryNodes currently executing."),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return fmt.Errorf("unable to create %s metric: %w", activeNodeUpDownCount, err)
	}
	return nil
}

// GraphBuildCounter retrieves the graphBuildCounter metric.
func GraphBuildCounter() metric.Int64Counter {
	return graphBuildCounter
}

// NodeExecuteCounter retrieves the nodeExecuteCounter metric.
func NodeExecuteCounter() metric.Int64Counter {
	return nodeExecuteCounter
}

// ConnectorErrorCounter retrieves the connectorErrorCounter metric.
func ConnectorErrorCounter() metric.Int64Counter {
	return connectorErrorCounter
}

// ActiveNodeUpDownCounter retrieves the activeNodeUpDownCounter metric.
func ActiveNodeUpDownCounter() metric.Int64UpDownCounter {
	return activeNodeUpDownCounter
}
