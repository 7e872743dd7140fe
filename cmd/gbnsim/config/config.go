// Package config defines the gbnsim harness binary's configuration,
// loaded from YAML via go-zero's conf package the same way
// cmd/gateway/main.go loads internal/gateway/config.Config.
package config

import (
	"github.com/gbnarq/engine/internal/gbn/config"
	"github.com/gbnarq/engine/internal/gbn/tracing"
)

// Config is the top-level gbnsim configuration: the shared link
// parameters every node uses, the traffic-generation scenario to run,
// and the ambient logging/metrics/observer/tracing stack.
type Config struct {
	// Link is the shared LinkEndpoint configuration (§6 of the spec):
	// DataRate, WindowSize, RTO, MTU, MAX_SEQ, TxQueue capacity,
	// ReceiveErrorModel, PointToPointMode.
	Link config.EndpointConfig `json:",optional"`

	// DelayMillis is the Channel's fixed propagation delay.
	DelayMillis int64 `json:",default=2"`

	Scenario ScenarioConfig `json:",optional"`
	Log      LogConfig      `json:",optional"`
	Metrics  MetricsConfig  `json:",optional"`
	Observer ObserverConfig `json:",optional"`
	Tracing  tracing.Config `json:",optional"`
}

// ScenarioConfig describes the traffic-generation run.
type ScenarioConfig struct {
	// NumNodes is how many LinkEndpoints to attach to the shared
	// Channel. With PointToPointMode the engine enforces at most 2.
	NumNodes int `json:",default=2"`

	// DurationSeconds bounds the simulated run; the harness stops
	// issuing new app traffic and drains the clock to this horizon.
	DurationSeconds int `json:",default=30"`

	// AppIntervalMillis is the period between successive app-layer
	// Send offers from node 0 to node 1.
	AppIntervalMillis int `json:",default=20"`

	// AppPayloadBytes is the fixed payload size each offer carries.
	AppPayloadBytes int `json:",default=512"`

	// AppMessageCount bounds how many payloads the sender offers;
	// 0 means it offers for the entire DurationSeconds.
	AppMessageCount int `json:",default=0"`

	// Realtime drives the scenario off wall-clock time (pkg/clock.Realtime)
	// instead of the deterministic pkg/clock.Sim, for the live demo mode.
	Realtime bool `json:",default=false"`
}

// LogConfig mirrors internal/gateway/config.LogConfig's fields for
// logx.MustSetup, kept a separate struct here since gbnsim is a distinct
// binary with its own default service name and log path.
type LogConfig struct {
	ServiceName         string `json:",default=gbnsim"`
	Mode                string `json:",default=console,options=console|file|volume"`
	Path                string `json:",default=logs/gbnsim"`
	Level               string `json:",default=info,options=debug|info|warn|error"`
	Compress            bool   `json:",default=false"`
	KeepDays            int    `json:",default=7"`
	StackCooldownMillis int    `json:",default=100"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enable bool   `json:",default=true"`
	Addr   string `json:",default=:9090"`
	Path   string `json:",default=/metrics"`
}

// ObserverConfig configures the websocket dashboard feed.
type ObserverConfig struct {
	Enable bool   `json:",default=false"`
	Addr   string `json:",default=:9091"`
	Path   string `json:",default=/ws"`
}
