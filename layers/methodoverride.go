package layers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vitalvas/strata/pipeline"
)

// ErrInvalidOverrideMethod is returned when MethodOverrideConfig.AllowedMethods
// or MethodOverrideConfig.OriginalMethods contains an invalid HTTP method.
var ErrInvalidOverrideMethod = errors.New("method override: allowed methods must be valid HTTP methods")

// MethodOverrideConfig configures the MethodOverride layer.
type MethodOverrideConfig struct {
	// HeaderNames is the list of header names checked in order.
	// The first non-empty header value is used as the override.
	// When nil, defaults to
	// ["X-HTTP-Method-Override", "X-Method-Override", "X-HTTP-Method"].
	HeaderNames []string

	// OriginalMethods is the set of HTTP methods eligible for override.
	// When nil, defaults to [POST].
	OriginalMethods []string

	// AllowedMethods restricts which methods can be used as overrides.
	// When nil, defaults to PUT, PATCH, DELETE, HEAD, OPTIONS.
	AllowedMethods []string
}

var defaultOverrideHeaders = []string{
	"X-HTTP-Method-Override",
	"X-Method-Override",
	"X-HTTP-Method",
}

var defaultOriginalMethods = []string{http.MethodPost}

var defaultOverrideMethods = []string{
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
}

// MethodOverride returns a layer that lets clients override the request
// method through a header. Downstream layers see the overridden method
// under pipeline.KeyMethod and a header without the override field; the
// original header is left untouched.
//
// It returns ErrInvalidOverrideMethod if AllowedMethods or OriginalMethods
// contains an invalid method.
func MethodOverride[T any](cfg MethodOverrideConfig) (pipeline.Layer[T], error) {
	headers := cfg.HeaderNames
	if len(headers) == 0 {
		headers = defaultOverrideHeaders
	}

	originals := cfg.OriginalMethods
	if originals == nil {
		originals = defaultOriginalMethods
	}

	methods := cfg.AllowedMethods
	if methods == nil {
		methods = defaultOverrideMethods
	}

	for _, m := range append(append([]string{}, originals...), methods...) {
		if m == "" || m != strings.ToUpper(m) {
			return nil, ErrInvalidOverrideMethod
		}
	}

	headerNames := make([]string, len(headers))
	copy(headerNames, headers)

	originalSet := toSet(originals)
	allowed := toSet(methods)

	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "method-override",
		Requires: []string{pipeline.KeyMethod, pipeline.KeyHeader},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			if _, ok := originalSet[strings.ToUpper(in.String(pipeline.KeyMethod))]; !ok {
				return next(ctx, in)
			}

			header, _ := pipeline.Get[http.Header](in, pipeline.KeyHeader)
			for _, h := range headerNames {
				v := header.Get(h)
				if v == "" {
					continue
				}

				override := strings.ToUpper(v)
				if _, ok := allowed[override]; ok {
					stripped := header.Clone()
					stripped.Del(h)
					in = in.Merge(map[string]any{
						pipeline.KeyMethod: override,
						pipeline.KeyHeader: stripped,
					})
				}

				break
			}

			return next(ctx, in)
		},
	}), nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
