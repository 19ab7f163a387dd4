package web

import (
	"context"
	"net/http"

	"github.com/vitalvas/strata/layers"
	"github.com/vitalvas/strata/pipeline"
)

const contentTypeJSON = "application/json"

// JSONConfig configures the EncodeJSON layer.
type JSONConfig struct {
	// SkipIfAcceptMissing declines requests whose Accept header does not
	// admit application/json, letting a sibling route answer them.
	SkipIfAcceptMissing bool
}

// EncodeJSON returns a layer that encodes the Value of responses produced
// below it as JSON. Responses that already carry a Body are left as is.
//
// Routes below the layer are annotated with an application/json response
// content type unless a more specific one is declared.
func EncodeJSON(cfg JSONConfig) Layer {
	skip := cfg.SkipIfAcceptMissing

	return pipeline.Define(pipeline.Definition[*Response]{
		Tag:      "json",
		Requires: []string{pipeline.KeyHeader},
		Annotate: func(a pipeline.Annotation) pipeline.Annotation {
			if a.String(pipeline.AnnotationResponseContentType) != "" {
				return a
			}
			return a.With(pipeline.AnnotationResponseContentType, contentTypeJSON)
		},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[*Response]) (pipeline.Result[*Response], error) {
			if skip {
				header, _ := pipeline.Get[http.Header](in, pipeline.KeyHeader)
				if !layers.Accepts(header.Get("Accept"), contentTypeJSON) {
					return pipeline.NotMatched[*Response](), nil
				}
			}

			res, err := next(ctx, in)
			if err != nil {
				return res, err
			}

			resp, ok := res.Get()
			if !ok || resp == nil || resp.Body != nil || resp.Value == nil {
				return res, nil
			}

			body, err := encodeJSON(resp.Value)
			if err != nil {
				return pipeline.NotMatched[*Response](), err
			}

			out := *resp
			out.Header = resp.Header.Clone()
			if out.Header == nil {
				out.Header = http.Header{}
			}
			out.Header.Set("Content-Type", contentTypeJSON)
			out.Body = body

			return pipeline.Matched(&out), nil
		},
	})
}
