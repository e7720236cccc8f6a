package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const incomingTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

// serveMux builds a small mux behind Middleware and installs an in-memory
// span exporter as the global tracer provider.
func serveMux(t *testing.T) (http.Handler, *Metrics, func() metricdata.ResourceMetrics, *tracetest.InMemoryExporter) {
	t.Helper()
	m, reader := newTestMetrics(t)

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /characters/{index}", func(w http.ResponseWriter, r *http.Request) {
		if CorrelationID(r.Context()) == "" {
			t.Error("handler context carries no correlation ID")
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /craft", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	return Middleware(m)(mux), m, func() metricdata.ResourceMetrics { return collect(t, reader) }, exp
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		traceparent string
		wantStatus  int
		wantRoute   string
	}{
		{name: "route pattern labels the request", method: "GET", path: "/characters/3", wantStatus: 200, wantRoute: "GET /characters/{index}"},
		{name: "handler status is captured", method: "POST", path: "/craft", wantStatus: 409, wantRoute: "POST /craft"},
		{name: "unknown path", method: "GET", path: "/nope", wantStatus: 404, wantRoute: "unmatched"},
		{
			name: "incoming trace is continued", method: "GET", path: "/characters/0",
			traceparent: "00-" + incomingTraceID + "-00f067aa0ba902b7-01",
			wantStatus:  200, wantRoute: "GET /characters/{index}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, collectMetrics, exp := serveMux(t)

			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			cid := rec.Header().Get("X-Correlation-ID")
			if len(cid) != 32 {
				t.Errorf("X-Correlation-ID = %q, want a 32-char trace ID", cid)
			}
			if tt.traceparent != "" && cid != incomingTraceID {
				t.Errorf("X-Correlation-ID = %q, want incoming trace %q", cid, incomingTraceID)
			}

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("spans = %d, want 1", len(spans))
			}
			if want := "HTTP " + tt.wantRoute; spans[0].Name != want {
				t.Errorf("span name = %q, want %q", spans[0].Name, want)
			}
			var gotStatus int64
			for _, a := range spans[0].Attributes {
				if a.Key == "http.response.status_code" {
					gotStatus = a.Value.AsInt64()
				}
			}
			if gotStatus != int64(tt.wantStatus) {
				t.Errorf("span status attribute = %d, want %d", gotStatus, tt.wantStatus)
			}

			met := findMetric(collectMetrics(), "roster.http.request.duration")
			if met == nil {
				t.Fatal("duration metric not recorded")
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok || len(hist.DataPoints) != 1 {
				t.Fatalf("duration data = %+v, want one histogram point", met.Data)
			}
			attrs := hist.DataPoints[0].Attributes
			if v, _ := attrs.Value(attribute.Key("route")); v.AsString() != tt.wantRoute {
				t.Errorf("route label = %q, want %q", v.AsString(), tt.wantRoute)
			}
			if v, _ := attrs.Value(attribute.Key("status")); v.AsString() == "" {
				t.Error("status label missing")
			}
		})
	}
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Fatal("Hijack: expected error for a recorder")
	}
	if rw.hijacked {
		t.Error("hijacked = true after failed hijack")
	}
}
