package layers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vitalvas/strata/pipeline"
)

// RequestIDFrom returns the request ID stored by RequestID. Returns an empty
// string if no ID is present.
func RequestIDFrom(in pipeline.Values) string {
	return in.String(pipeline.KeyRequestID)
}

// RequestIDConfig configures the RequestID layer.
type RequestIDConfig[T any] struct {
	// HeaderName is the request header read when TrustIncoming is set.
	// Defaults to "X-Request-ID" when empty.
	HeaderName string

	// GenerateFunc returns a new unique ID. Defaults to GenerateUUIDv4.
	GenerateFunc func(in pipeline.Values) string

	// TrustIncoming, when true, reuses an existing request ID from the
	// incoming request header instead of generating a new one.
	TrustIncoming bool

	// Stamp, when set, is applied to a matched result so the ID can be
	// echoed back to the caller, typically as a response header.
	Stamp func(res T, id string) T
}

// RequestID returns a layer that reads or generates a request ID and passes
// it downstream under pipeline.KeyRequestID.
func RequestID[T any](cfg RequestIDConfig[T]) pipeline.Layer[T] {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	generate := cfg.GenerateFunc
	if generate == nil {
		generate = GenerateUUIDv4
	}

	trustIncoming := cfg.TrustIncoming
	stamp := cfg.Stamp

	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "request-id",
		Provides: []string{pipeline.KeyRequestID},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			id := ""
			if trustIncoming {
				if h, ok := pipeline.Get[http.Header](in, pipeline.KeyHeader); ok {
					id = h.Get(headerName)
				}
			}

			if id == "" {
				id = generate(in)
			}

			res, err := next(ctx, in.With(pipeline.KeyRequestID, id))
			if err != nil || stamp == nil || id == "" {
				return res, err
			}

			return res.Map(func(v T) T { return stamp(v, id) }), nil
		},
	})
}

// GenerateUUIDv4 returns a new UUID v4 string.
//
// See https://www.rfc-editor.org/rfc/rfc9562#section-5.4
func GenerateUUIDv4(_ pipeline.Values) string {
	return uuid.New().String()
}

// GenerateUUIDv7 returns a new UUID v7 string. UUIDs are time-ordered:
// IDs generated later sort lexicographically after earlier ones.
//
// See https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func GenerateUUIDv7(_ pipeline.Values) string {
	return uuid.Must(uuid.NewV7()).String()
}
