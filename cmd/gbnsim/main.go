// Command gbnsim drives the Go-Back-N engine through a configurable
// scenario: a handful of LinkEndpoints attached to one Channel, a
// periodic app-layer traffic generator, and optional Prometheus/
// websocket-observer/tracing instrumentation, mirroring how
// cmd/gateway/main.go assembles its ServiceContext from a loaded Config.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	"go.uber.org/zap"

	harnessconfig "github.com/gbnarq/engine/cmd/gbnsim/config"
	"github.com/gbnarq/engine/internal/gbn/app"
	"github.com/gbnarq/engine/internal/gbn/errormodel"
	"github.com/gbnarq/engine/internal/gbn/metrics"
	"github.com/gbnarq/engine/internal/gbn/observer"
	"github.com/gbnarq/engine/internal/gbn/scenario"
	"github.com/gbnarq/engine/internal/gbn/tracing"
	"github.com/gbnarq/engine/pkg/clock"
)

var configFile = flag.String("f", "configs/gbnsim.yaml", "the config file")

func main() {
	flag.Parse()

	var c harnessconfig.Config
	conf.MustLoad(*configFile, &c)

	logx.MustSetup(logx.LogConf{
		ServiceName:         c.Log.ServiceName,
		Mode:                c.Log.Mode,
		Path:                c.Log.Path,
		Level:               c.Log.Level,
		Compress:            c.Log.Compress,
		KeepDays:            c.Log.KeepDays,
		StackCooldownMillis: c.Log.StackCooldownMillis,
	})

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	if err := c.Link.Validate(); err != nil {
		logger.Fatal("invalid link configuration", zap.Error(err))
	}
	if c.Scenario.NumNodes < 2 {
		logger.Fatal("scenario.NumNodes must be at least 2", zap.Int("numNodes", c.Scenario.NumNodes))
	}

	tracer, err := tracing.New(c.Tracing, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(ctx)
	}()

	var m *metrics.Metrics
	if c.Metrics.Enable {
		m = metrics.New("gbn", "sim")
	}

	var hub *observer.Hub
	var metricsServer *http.Server
	if c.Metrics.Enable || c.Observer.Enable {
		mux := http.NewServeMux()
		if c.Metrics.Enable {
			mux.Handle(c.Metrics.Path, promhttp.Handler())
		}
		if c.Observer.Enable {
			hub = observer.NewHub(logger)
			mux.Handle(c.Observer.Path, hub)
		}
		addr := c.Metrics.Addr
		if !c.Metrics.Enable {
			addr = c.Observer.Addr
		}
		metricsServer = &http.Server{Addr: addr, Handler: mux}
		go func() {
			logger.Info("instrumentation server started", zap.String("address", addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("instrumentation server failed", zap.Error(err))
			}
		}()
	}

	var clk clock.Clock
	if c.Scenario.Realtime {
		clk = clock.NewRealtime()
	} else {
		clk = clock.NewSim()
	}

	specs := make([]scenario.NodeSpec, c.Scenario.NumNodes)
	for i := range specs {
		name := fmt.Sprintf("node%d", i)
		var em errormodel.Model
		if c.Link.ReceiveErrorModel.Kind == "bernoulli" {
			b, err := errormodel.NewBernoulli(c.Link.ReceiveErrorModel.P, c.Link.ReceiveErrorModel.Seed+int64(i))
			if err != nil {
				logger.Fatal("invalid error model", zap.Error(err))
			}
			em = b
		}
		specs[i] = scenario.NodeSpec{Name: name, ErrorModel: em}
	}

	sc, err := scenario.New(clk, specs, scenario.Options{
		EndpointConfig: c.Link,
		PointToPoint:   c.Link.PointToPointMode,
		Delay:          time.Duration(c.DelayMillis) * time.Millisecond,
		Metrics:        m,
		Hub:            hub,
		Tracer:         tracer,
		Log:            logger,
	})
	if err != nil {
		logger.Fatal("failed to build scenario", zap.Error(err))
	}
	if sc.Windows != nil {
		prometheus.MustRegister(sc.Windows)
	}

	src, dst := sc.Nodes[0], sc.Nodes[1]
	sender := app.NewAppSender(clk, src.Endpoint, dst.Address, 1,
		app.FixedPayload(c.Scenario.AppPayloadBytes), c.Scenario.AppMessageCount)
	sender.Start(time.Duration(c.Scenario.AppIntervalMillis) * time.Millisecond)

	logger.Info("gbnsim scenario starting",
		zap.Int("nodes", c.Scenario.NumNodes),
		zap.Int("windowSize", c.Link.WindowSize),
		zap.Uint64("dataRate", c.Link.DataRate),
		zap.Int("durationSeconds", c.Scenario.DurationSeconds),
		zap.Bool("realtime", c.Scenario.Realtime),
	)

	runUntilDone(clk, c.Scenario.DurationSeconds, logger)

	report(logger, clk, src, dst, sender)

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}
}

// runUntilDone advances the scenario's clock to the configured horizon.
// A Sim clock drains deterministically; a Realtime clock instead blocks
// on a timer or an interrupt signal, whichever comes first.
func runUntilDone(clk clock.Clock, durationSeconds int, logger *zap.Logger) {
	horizon := time.Duration(durationSeconds) * time.Second
	if sim, ok := clk.(*clock.Sim); ok {
		sim.RunFor(horizon)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(horizon):
	case sig := <-sigCh:
		logger.Info("received signal, stopping early", zap.String("signal", sig.String()))
	}
}

func report(logger *zap.Logger, clk clock.Clock, src, dst *scenario.Node, sender *app.AppSender) {
	ss := sender.Stats()
	rs := dst.Sink.Stats()
	throughput := dst.ThroughputBitsPerSecond(clk.Now())
	logger.Info("scenario complete",
		zap.String("sender", src.Name),
		zap.String("receiver", dst.Name),
		zap.Int("sent", ss.Sent),
		zap.Int("admitted", ss.Admitted),
		zap.Int("rejected", ss.Rejected),
		zap.Int("delivered", rs.Payloads),
		zap.Int64("bytesDelivered", rs.Bytes),
		zap.Float64("throughputBitsPerSec", throughput),
	)
	fmt.Printf("gbnsim: offered=%d admitted=%d rejected=%d delivered=%d bytes=%d throughput=%.0fbit/s\n",
		ss.Sent, ss.Admitted, ss.Rejected, rs.Payloads, rs.Bytes, throughput)
}
