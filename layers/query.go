package layers

import (
	"context"
	"net/url"

	"github.com/vitalvas/strata/pipeline"
)

// Query parses the query string of the request URL and passes it
// downstream under pipeline.KeyQuery. A malformed query string yields the
// pairs that could be parsed.
func Query[T any]() pipeline.Layer[T] {
	return pipeline.Define(pipeline.Definition[T]{
		Tag:      "query",
		Requires: []string{pipeline.KeyURL},
		Provides: []string{pipeline.KeyQuery},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			var q url.Values
			if u, ok := pipeline.Get[*url.URL](in, pipeline.KeyURL); ok && u != nil {
				q, _ = url.ParseQuery(u.RawQuery)
			}
			if q == nil {
				q = url.Values{}
			}
			return next(ctx, in.With(pipeline.KeyQuery, q))
		},
	})
}

// QueryFrom returns the parsed query string, or nil.
func QueryFrom(in pipeline.Values) url.Values {
	q, _ := pipeline.Get[url.Values](in, pipeline.KeyQuery)
	return q
}
