package layers

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/vitalvas/strata/pipeline"
)

// ErrNoAllowedTypes is returned when ContentTypeConfig.AllowedTypes or
// AcceptConfig.Types is empty.
var ErrNoAllowedTypes = errors.New("content type check: at least one allowed content type is required")

// ContentTypeConfig configures the ContentType guard.
type ContentTypeConfig struct {
	// AllowedTypes is the set of acceptable Content-Type values.
	// Matching is case-insensitive and ignores parameters
	// (e.g. "application/json" matches "application/json; charset=utf-8").
	// Required; at least one must be provided.
	AllowedTypes []string

	// Methods is the set of HTTP methods that require Content-Type
	// validation. When nil, defaults to POST, PUT, PATCH.
	Methods []string
}

var defaultCheckedMethods = []string{
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
}

// ContentType returns a guard that declines requests with a checked method
// whose Content-Type is missing, malformed or not allowed, so that a sibling
// route accepting another body format can be tried.
//
// It returns ErrNoAllowedTypes if AllowedTypes is empty.
func ContentType[T any](cfg ContentTypeConfig) (pipeline.Layer[T], error) {
	if len(cfg.AllowedTypes) == 0 {
		return nil, ErrNoAllowedTypes
	}

	methods := cfg.Methods
	if methods == nil {
		methods = defaultCheckedMethods
	}
	methodSet := toSet(methods)

	allowedSet := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowedSet[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "content-type",
		Requires: []string{pipeline.KeyMethod, pipeline.KeyHeader},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			if _, check := methodSet[strings.ToUpper(in.String(pipeline.KeyMethod))]; !check {
				return next(ctx, in)
			}

			header, _ := pipeline.Get[http.Header](in, pipeline.KeyHeader)
			ct := header.Get("Content-Type")
			if ct == "" {
				return pipeline.NotMatched[T](), nil
			}

			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil {
				return pipeline.NotMatched[T](), nil
			}

			if _, ok := allowedSet[strings.ToLower(mediaType)]; !ok {
				return pipeline.NotMatched[T](), nil
			}

			return next(ctx, in)
		},
	}), nil
}

// AcceptConfig configures the Accept guard.
type AcceptConfig struct {
	// Types lists the media types the routes below can produce.
	// Required; at least one must be provided.
	Types []string

	// SkipIfMissing declines requests without an Accept header instead of
	// treating them as accepting anything.
	SkipIfMissing bool
}

// Accept returns a guard that declines requests whose Accept header admits
// none of cfg.Types.
//
// It returns ErrNoAllowedTypes if Types is empty.
func Accept[T any](cfg AcceptConfig) (pipeline.Layer[T], error) {
	if len(cfg.Types) == 0 {
		return nil, ErrNoAllowedTypes
	}

	types := make([]string, len(cfg.Types))
	copy(types, cfg.Types)
	skipIfMissing := cfg.SkipIfMissing

	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "accept",
		Requires: []string{pipeline.KeyHeader},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			header, _ := pipeline.Get[http.Header](in, pipeline.KeyHeader)
			accept := header.Get("Accept")

			if accept == "" {
				if skipIfMissing {
					return pipeline.NotMatched[T](), nil
				}
				return next(ctx, in)
			}

			for _, t := range types {
				if Accepts(accept, t) {
					return next(ctx, in)
				}
			}

			return pipeline.NotMatched[T](), nil
		},
	}), nil
}

// Accepts reports whether an Accept header value admits mediaType, honouring
// wildcard ranges and q=0 exclusions (RFC 9110 Section 12.5.1).
func Accepts(accept, mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	typ, sub, _ := strings.Cut(mediaType, "/")

	for _, part := range strings.Split(accept, ",") {
		rng, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}

		if q, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}

		rt, rs, _ := strings.Cut(rng, "/")
		switch {
		case rt == "*" && rs == "*":
			return true
		case rt == typ && rs == "*":
			return true
		case rt == typ && rs == sub:
			return true
		}
	}

	return false
}
