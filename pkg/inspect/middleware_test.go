package inspect

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
)

type recTracer struct {
	noop.Tracer
	spans []*recSpan
}

func (t *recTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	s := &recSpan{name: name}
	t.spans = append(t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recSpan struct {
	noop.Span
	name  string
	attrs map[attribute.Key]attribute.Value
	ended bool
}

func (s *recSpan) SetName(name string) { s.name = name }

func (s *recSpan) SetAttributes(kv ...attribute.KeyValue) {
	if s.attrs == nil {
		s.attrs = map[attribute.Key]attribute.Value{}
	}
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestRequestsAreTracedByRoute(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := lifecycle.New(dom.Div(), lifecycle.WithLogger(logger))
	t.Cleanup(rt.Close)
	tracer := &recTracer{}
	srv := New(rt, WithTracer(tracer))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(tracer.spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(tracer.spans))
	}
	ok := tracer.spans[0]
	if ok.name != "inspect GET /healthz" || !ok.ended {
		t.Errorf("span = %q ended=%v", ok.name, ok.ended)
	}
	if got := ok.attrs["http.status_code"].AsInt64(); got != http.StatusOK {
		t.Errorf("status attribute = %d", got)
	}
	if got := tracer.spans[1].attrs["http.status_code"].AsInt64(); got != http.StatusNotFound {
		t.Errorf("unrouted status attribute = %d, want 404", got)
	}
}
