package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/strata/layers"
	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/scope"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, c *Chain, cfg Config) *Handler {
	t.Helper()

	p, err := c.Build(RequestKeys)
	require.NoError(t, err)

	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	return NewHandler(p, cfg)
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func text(s string) HandlerFunc {
	return func(context.Context, pipeline.Values) (*Response, error) {
		return Text(http.StatusOK, s), nil
	}
}

func hello(_ context.Context, in pipeline.Values) (*Response, error) {
	return Text(http.StatusOK, "hello "+layers.Param(in, "world")), nil
}

func TestHandler(t *testing.T) {
	api := New().Match(
		New(Route(http.MethodGet, "/hello/:world")).Handle(hello),
		New(Route(http.MethodGet, "/hello")).Handle(text("hello")),
		New(Route(http.MethodGet, "/hello/:world/:foo")).Handle(func(_ context.Context, in pipeline.Values) (*Response, error) {
			return Text(http.StatusOK, layers.Param(in, "world")+", "+layers.Param(in, "foo")), nil
		}),
	)
	h := newTestHandler(t, api, Config{})

	tests := []struct {
		name   string
		method string
		target string
		status int
		body   string
	}{
		{"single capture", http.MethodGet, "/hello/a", http.StatusOK, "hello a"},
		{"literal route", http.MethodGet, "/hello", http.StatusOK, "hello"},
		{"two captures", http.MethodGet, "/hello/world/foo", http.StatusOK, "world, foo"},
		{"trailing slash", http.MethodGet, "/hello/a/", http.StatusOK, "hello a"},
		{"dot segments", http.MethodGet, "/x/../hello/b", http.StatusOK, "hello b"},
		{"lower-case method", "get", "/hello/a", http.StatusOK, "hello a"},
		{"encoded slash", http.MethodGet, "/hello/a%2Fb", http.StatusOK, "hello a/b"},
		{"encoded space", http.MethodGet, "/hello/a%20b", http.StatusOK, "hello a b"},
		{"method mismatch", http.MethodPost, "/hello/a", http.StatusNotFound, "404 page not found\n"},
		{"unknown path", http.MethodGet, "/bye", http.StatusNotFound, "404 page not found\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(h, httptest.NewRequest(tc.method, tc.target, nil))
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.body, w.Body.String())
		})
	}

	t.Run("text content type", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/hello", nil))
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "5", w.Header().Get("Content-Length"))
	})
}

func TestHandlerNotFound(t *testing.T) {
	h := newTestHandler(t, New(Method(http.MethodGet)).Handle(text("ok")), Config{
		NotFoundHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	})

	w := serve(h, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestHandlerFaults(t *testing.T) {
	errBoom := errors.New("boom")

	t.Run("error maps to 500", func(t *testing.T) {
		h := newTestHandler(t, New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
			return nil, errBoom
		}), Config{})

		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal Server Error\n", w.Body.String())
	})

	t.Run("panic maps to 500", func(t *testing.T) {
		h := newTestHandler(t, New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
			panic("test panic")
		}), Config{})

		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("fault is not absorbed by the alternation", func(t *testing.T) {
		fallbackCalled := false
		h := newTestHandler(t, New().Match(
			New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
				return nil, errBoom
			}),
			New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
				fallbackCalled = true
				return Text(http.StatusOK, "fallback"), nil
			}),
		), Config{})

		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.False(t, fallbackCalled)
	})

	t.Run("nil response maps to 500", func(t *testing.T) {
		h := newTestHandler(t, New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
			return nil, nil
		}), Config{})

		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("custom error handler and logger", func(t *testing.T) {
		var logs strings.Builder
		var got error

		h := newTestHandler(t, New().Handle(func(context.Context, pipeline.Values) (*Response, error) {
			return nil, errBoom
		}), Config{
			Logger: slog.New(slog.NewTextHandler(&logs, nil)),
			ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
				got = err
				w.WriteHeader(http.StatusBadGateway)
			},
		})

		w := serve(h, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.ErrorIs(t, got, errBoom)
		assert.Contains(t, logs.String(), "request failed")
		assert.Contains(t, logs.String(), "error=boom")
	})

	t.Run("panic error unwraps", func(t *testing.T) {
		err := &PanicError{Value: errBoom}
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, "web: panic: boom", err.Error())
		assert.NoError(t, (&PanicError{Value: "x"}).Unwrap())
	})
}

func TestHandlerCancellation(t *testing.T) {
	finalized := false

	api := New(layers.Scoped[*Response]()).Handle(func(_ context.Context, in pipeline.Values) (*Response, error) {
		s := layers.ScopeFrom(in)
		out := scope.Spawn(s, func(ctx context.Context) (string, error) {
			if err := scope.Sleep(ctx, 100*time.Millisecond); err != nil {
				return "", err
			}
			s.AddFinalizer(func(error) { finalized = true })
			return "done", nil
		})

		if out.Interrupted() {
			return Text(http.StatusOK, "interrupted!"), nil
		}
		return Text(http.StatusOK, out.Value), out.Err
	})
	h := newTestHandler(t, api, Config{})

	t.Run("cancelled request", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "interrupted!", w.Body.String())
		assert.False(t, finalized)
	})

	t.Run("live request", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "done", w.Body.String())
		assert.True(t, finalized)
	})
}

func TestHandlerServe(t *testing.T) {
	h := newTestHandler(t, New(Method(http.MethodGet)).Handle(text("ok")), Config{})

	t.Run("matched", func(t *testing.T) {
		resp, err := h.Serve(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, []byte("ok"), resp.Body)
	})

	t.Run("not matched", func(t *testing.T) {
		_, err := h.Serve(context.Background(), httptest.NewRequest(http.MethodPost, "/", nil))
		assert.ErrorIs(t, err, ErrNotMatched)
	})
}

func TestHandlerBody(t *testing.T) {
	h := newTestHandler(t, New(Method(http.MethodPost)).Handle(func(_ context.Context, in pipeline.Values) (*Response, error) {
		b, err := io.ReadAll(BodyFrom(in))
		if err != nil {
			return nil, err
		}
		return Text(http.StatusCreated, strings.ToUpper(string(b))), nil
	}), Config{})

	w := serve(h, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("payload")))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "PAYLOAD", w.Body.String())

	assert.Equal(t, http.NoBody, BodyFrom(pipeline.Values{}))
}

func TestHandlerTrace(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newTestHandler(t, New(Method(http.MethodGet)).Handle(text("ok")), Config{TracerProvider: tp})

	serve(h, httptest.NewRequest(http.MethodGet, "/traced", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "strata.request", spans[0].Name())
}

func TestHandlerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	api := New().Match(
		New(Method(http.MethodGet)).Handle(text("ok")),
		New(Method(http.MethodDelete)).Handle(func(context.Context, pipeline.Values) (*Response, error) {
			return nil, errors.New("boom")
		}),
	)
	h := newTestHandler(t, api, Config{MeterProvider: mp})

	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	serve(h, httptest.NewRequest(http.MethodPost, "/", nil))
	serve(h, httptest.NewRequest(http.MethodDelete, "/", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	m := rm.ScopeMetrics[0].Metrics[0]
	assert.Equal(t, "strata.server.requests", m.Name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("strata.outcome"))
		counts[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"matched": 2, "not_matched": 1, "fault": 1}, counts)
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t, New(RequestID(RequestIDConfig{TrustIncoming: true})).Handle(func(_ context.Context, in pipeline.Values) (*Response, error) {
		return Text(http.StatusOK, layers.RequestIDFrom(in)), nil
	}), Config{})

	t.Run("generated", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "abc-123")
		w := serve(h, r)
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"a/b", "/a/b"},
		{"/a//b/", "/a/b/"},
		{"/a/./b/../c", "/a/c"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanPath(tc.in))
		})
	}
}
