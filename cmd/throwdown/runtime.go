package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/throwdown/internal/config"
	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/metrics"
	"github.com/vango-dev/throwdown/pkg/registry"
)

// runtimeParts is a configured runtime and the metrics registry its
// collector writes to.
type runtimeParts struct {
	rt      *lifecycle.Runtime
	metrics *prometheus.Registry
}

// newRuntime builds a lifecycle runtime over root from cfg.
func newRuntime(cfg *config.Config, root *dom.Node, logger *slog.Logger) (*runtimeParts, error) {
	alloc, ok := registry.NewAllocator(cfg.Identity.Allocator, cfg.Identity.Prefix)
	if !ok {
		return nil, errors.New("E150").
			WithDetail("Unknown allocator " + cfg.Identity.Allocator)
	}
	reg := registry.New(
		registry.WithAllocator(alloc),
		registry.WithMaxAttempts(cfg.Identity.MaxAttempts),
	)

	promReg := prometheus.NewRegistry()
	opts := []lifecycle.Option{
		lifecycle.WithRegistry(reg),
		lifecycle.WithLogger(logger),
		lifecycle.WithTaskBuffer(cfg.Runtime.TaskBuffer),
		lifecycle.WithMaxFlushRounds(cfg.Runtime.MaxFlushRounds),
		lifecycle.WithRuntimeErrorSink(func(err error) {
			logger.Warn("lifecycle error", "code", errors.CodeOf(err), "error", err)
		}),
	}
	if cfg.Metrics.Enabled {
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, lifecycle.WithMetrics(metrics.New(
			metrics.WithNamespace(cfg.Metrics.Namespace),
			metrics.WithRegistry(promReg),
		)))
	}

	return &runtimeParts{
		rt:      lifecycle.New(root, opts...),
		metrics: promReg,
	}, nil
}
