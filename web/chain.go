package web

import (
	"io"
	"net/http"

	"github.com/vitalvas/strata/layers"
	"github.com/vitalvas/strata/pipeline"
)

// Chain is a pipeline chain producing HTTP responses.
type Chain = pipeline.Chain[*Response]

// Layer is a pipeline layer producing HTTP responses.
type Layer = pipeline.Layer[*Response]

// HandlerFunc is a terminal handler producing an HTTP response.
type HandlerFunc = pipeline.HandlerFunc[*Response]

// New returns a chain of the given layers.
func New(l ...Layer) *Chain {
	return pipeline.New(l...)
}

// Method guards on the request method.
func Method(m string) Layer {
	return layers.Method[*Response](m)
}

// Path guards on a path template and captures its parameters.
func Path(template string) Layer {
	return layers.Path[*Response](template)
}

// Route guards on both method and path template.
func Route(method, template string) Layer {
	return layers.Route[*Response](method, template)
}

// Describe annotates the routes below with a description.
func Describe(description string) Layer {
	return layers.Describe[*Response](description)
}

// RequestIDConfig configures the RequestID layer.
type RequestIDConfig struct {
	// HeaderName is read when TrustIncoming is set and written on the
	// response. Defaults to "X-Request-ID".
	HeaderName string

	// TrustIncoming reuses the ID sent by the client.
	TrustIncoming bool

	// GenerateFunc returns a new ID. Defaults to layers.GenerateUUIDv4.
	GenerateFunc func(in pipeline.Values) string
}

// RequestID assigns a request ID and echoes it in the response header.
func RequestID(cfg RequestIDConfig) Layer {
	headerName := cfg.HeaderName
	if headerName == "" {
		headerName = "X-Request-ID"
	}

	return layers.RequestID(layers.RequestIDConfig[*Response]{
		HeaderName:    headerName,
		TrustIncoming: cfg.TrustIncoming,
		GenerateFunc:  cfg.GenerateFunc,
		Stamp: func(res *Response, id string) *Response {
			if res == nil {
				return nil
			}
			return res.SetHeader(headerName, id)
		},
	})
}

// BodyFrom returns the request body reader set by the Handler, or
// http.NoBody.
func BodyFrom(in pipeline.Values) io.Reader {
	if body, ok := pipeline.Get[io.Reader](in, pipeline.KeyBody); ok && body != nil {
		return body
	}
	return http.NoBody
}
