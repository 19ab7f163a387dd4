package layers

import (
	"context"
	"net/url"
	"strings"

	"github.com/vitalvas/strata/pattern"
	"github.com/vitalvas/strata/pipeline"
)

// Method returns a guard that declines requests whose method is not m.
// The incoming method is upper-cased before the comparison, so m should be
// given in upper case.
func Method[T any](m string) pipeline.Layer[T] {
	return pipeline.Define(pipeline.Definition[T]{
		Tag:      m,
		Requires: []string{pipeline.KeyMethod},
		Annotate: func(a pipeline.Annotation) pipeline.Annotation {
			return a.With(pipeline.AnnotationMethod, m)
		},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			if strings.ToUpper(in.String(pipeline.KeyMethod)) != m {
				return pipeline.NotMatched[T](), nil
			}
			return next(ctx, in)
		},
	})
}

// Path returns a guard that matches the request path against tpl and passes
// the captures downstream under pipeline.KeyParams, merged with captures
// from earlier path guards. It panics if tpl is not a valid template.
//
// The path is matched in its escaped form, so an encoded "%2F" stays inside
// a single segment. Captures are unescaped before they are handed down; a
// capture that is not a valid escape sequence declines the request.
func Path[T any](tpl string) pipeline.Layer[T] {
	p := pattern.MustCompile(tpl)

	return pipeline.Define(pipeline.Definition[T]{
		Tag:      tpl,
		Requires: []string{pipeline.KeyPath},
		Provides: []string{pipeline.KeyParams},
		Annotate: func(a pipeline.Annotation) pipeline.Annotation {
			return a.With(pipeline.AnnotationPath, tpl)
		},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[T]) (pipeline.Result[T], error) {
			vars, ok := p.Match(in.String(pipeline.KeyPath))
			if !ok {
				return pipeline.NotMatched[T](), nil
			}

			for k, v := range vars {
				unescaped, err := url.PathUnescape(v)
				if err != nil {
					return pipeline.NotMatched[T](), nil
				}
				vars[k] = unescaped
			}

			if prev := Params(in); len(prev) > 0 {
				merged := make(map[string]string, len(prev)+len(vars))
				for k, v := range prev {
					merged[k] = v
				}
				for k, v := range vars {
					merged[k] = v
				}
				vars = merged
			}

			return next(ctx, in.With(pipeline.KeyParams, vars))
		},
	})
}

// Route is Method followed by Path.
func Route[T any](method, tpl string) pipeline.Layer[T] {
	return pipeline.Compose(Method[T](method), Path[T](tpl))
}

// Params returns the path captures of the request, if any.
func Params(in pipeline.Values) map[string]string {
	vars, _ := pipeline.Get[map[string]string](in, pipeline.KeyParams)
	return vars
}

// Param returns a single path capture, or "" when it is absent.
func Param(in pipeline.Values, name string) string {
	return Params(in)[name]
}
