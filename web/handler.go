package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vitalvas/strata/web"

var (
	// ErrNotMatched is returned by Serve when no route accepted the request.
	ErrNotMatched = errors.New("web: no route matched")

	// ErrNilResponse is returned when a route matched with a nil *Response.
	ErrNilResponse = errors.New("web: handler matched with a nil response")
)

// PanicError wraps a value recovered from a panic in the pipeline.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("web: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Config configures a Handler.
type Config struct {
	// NotFoundHandler is called when no route matches.
	// If nil, http.NotFoundHandler() is used.
	// Corresponds to 404 Not Found per RFC 9110 Section 15.5.5.
	NotFoundHandler http.Handler

	// ErrorHandler is called when the pipeline returns an error or panics.
	// If nil, a plain 500 Internal Server Error is written, or 413 when the
	// error wraps an *http.MaxBytesError.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

	// Logger receives fault records. Defaults to a logger bridged to
	// OpenTelemetry.
	Logger *slog.Logger

	// TracerProvider overrides the global tracer provider for request spans.
	TracerProvider trace.TracerProvider

	// MeterProvider overrides the global meter provider for the request
	// counter.
	MeterProvider metric.MeterProvider

	// SkipClean disables path normalization (RFC 3986 Section 5.2.4).
	SkipClean bool
}

// Handler serves HTTP requests through a built pipeline.
//
// It implements the http.Handler interface:
//
//	p := web.New(web.Route(http.MethodGet, "/hello/:name")).
//		Handle(hello).
//		MustBuild(web.RequestKeys)
//	http.ListenAndServe(":8080", web.NewHandler(p, web.Config{}))
type Handler struct {
	pipeline *pipeline.Pipeline[*Response]

	notFound  http.Handler
	onError   func(w http.ResponseWriter, r *http.Request, err error)
	logger    *slog.Logger
	tracer    trace.Tracer
	requests  metric.Int64Counter
	skipClean bool
}

// RequestKeys declares the Values keys the Handler seeds every request
// with. Pass it to Build so layers requiring them pass the contract check.
var RequestKeys = pipeline.Provides(
	pipeline.KeyMethod,
	pipeline.KeyPath,
	pipeline.KeyURL,
	pipeline.KeyHeader,
	pipeline.KeyBody,
)

// NewHandler returns a Handler running p.
func NewHandler(p *pipeline.Pipeline[*Response], cfg Config) *Handler {
	h := &Handler{
		pipeline:  p,
		notFound:  cfg.NotFoundHandler,
		onError:   cfg.ErrorHandler,
		logger:    cfg.Logger,
		tracer:    telemetry.TracerFrom(cfg.TracerProvider, instrumentationName),
		skipClean: cfg.SkipClean,
	}

	if h.notFound == nil {
		h.notFound = http.NotFoundHandler()
	}
	if h.onError == nil {
		h.onError = defaultErrorHandler
	}
	if h.logger == nil {
		h.logger = telemetry.Logger(instrumentationName)
	}

	requests, err := telemetry.MeterFrom(cfg.MeterProvider, instrumentationName).Int64Counter(
		"strata.server.requests",
		metric.WithDescription("Total number of requests by pipeline outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		h.logger.Warn("failed to create requests metric", slog.Any("error", err))
		requests = noop.Int64Counter{}
	}
	h.requests = requests

	return h
}

// Request outcomes recorded on the request counter.
const (
	outcomeMatched    = "matched"
	outcomeNotMatched = "not_matched"
	outcomeFault      = "fault"
)

func (h *Handler) count(ctx context.Context, outcome string) {
	h.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("strata.outcome", outcome)))
}

// ServeHTTP runs the pipeline for r. The request context is the
// cancellation signal of the pipeline.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "strata.request", trace.WithAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.path", r.URL.Path),
	))
	defer span.End()

	res, err := h.run(ctx, r)
	if err == nil && res.IsMatched() && res.Value() == nil {
		err = ErrNilResponse
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		h.count(ctx, outcomeFault)
		h.onError(w, r, err)
		return
	}

	resp, ok := res.Get()
	if !ok {
		span.SetAttributes(attribute.Bool("strata.matched", false))
		h.count(ctx, outcomeNotMatched)
		h.notFound.ServeHTTP(w, r)
		return
	}

	span.SetAttributes(
		attribute.Bool("strata.matched", true),
		attribute.Int("http.response.status_code", resp.Status),
	)
	h.count(ctx, outcomeMatched)
	resp.write(w)
}

// Serve runs the pipeline for r without writing a response. It returns
// ErrNotMatched when no route accepted the request.
func (h *Handler) Serve(ctx context.Context, r *http.Request) (*Response, error) {
	res, err := h.run(ctx, r)
	if err != nil {
		return nil, err
	}

	resp, ok := res.Get()
	if !ok {
		return nil, ErrNotMatched
	}
	if resp == nil {
		return nil, ErrNilResponse
	}

	return resp, nil
}

func (h *Handler) run(ctx context.Context, r *http.Request) (res pipeline.Result[*Response], err error) {
	defer func() {
		if v := recover(); v != nil {
			res = pipeline.NotMatched[*Response]()
			err = &PanicError{Value: v}
		}
	}()

	return h.pipeline.Run(ctx, h.values(r))
}

func (h *Handler) values(r *http.Request) pipeline.Values {
	u := r.URL
	p := u.EscapedPath()
	if !h.skipClean {
		if cleaned := cleanPath(p); cleaned != p {
			clone := *u
			if decoded, err := url.PathUnescape(cleaned); err == nil {
				clone.Path = decoded
			}
			clone.RawPath = cleaned
			u = &clone
			p = cleaned
		}
	}

	body := r.Body
	if body == nil {
		body = http.NoBody
	}

	return pipeline.NewValues(map[string]any{
		pipeline.KeyMethod: r.Method,
		pipeline.KeyPath:   p,
		pipeline.KeyURL:    u,
		pipeline.KeyHeader: r.Header,
		pipeline.KeyBody:   body,
	})
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// cleanPath returns the canonical path for p, eliminating . and .. elements
// while keeping a trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	// path.Clean removes trailing slash except for root;
	// put the trailing slash back if necessary.
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}
