package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vitalvas/strata/pipeline"
)

// ErrInvalidFrameOption is returned when SecurityHeadersConfig.FrameOption is
// not one of the valid values: "DENY", "SAMEORIGIN", or empty string.
var ErrInvalidFrameOption = errors.New("security headers: frame option must be DENY, SAMEORIGIN, or empty")

// ErrInvalidMaxSize is returned when BodyLimitConfig.MaxBytes is not greater
// than zero.
var ErrInvalidMaxSize = errors.New("body limit: max size must be greater than zero")

// SecurityHeadersConfig configures the SecurityHeaders layer.
type SecurityHeadersConfig struct {
	// DisableContentTypeNosniff disables the X-Content-Type-Options: nosniff
	// header. The header is set by default (when false).
	DisableContentTypeNosniff bool

	// FrameOption sets the X-Frame-Options header value.
	// Valid values are "DENY", "SAMEORIGIN", or empty string for the default.
	// Defaults to "DENY".
	FrameOption string

	// ReferrerPolicy sets the Referrer-Policy header value.
	// Defaults to "strict-origin-when-cross-origin".
	ReferrerPolicy string

	// HSTSMaxAge sets the max-age directive for the Strict-Transport-Security
	// header in seconds. When zero, the header is not set.
	HSTSMaxAge int

	// HSTSIncludeSubDomains appends the includeSubDomains directive.
	// Only effective when HSTSMaxAge > 0.
	HSTSIncludeSubDomains bool

	// ContentSecurityPolicy sets the Content-Security-Policy header.
	// When empty, the header is not set.
	ContentSecurityPolicy string
}

// SecurityHeaders returns a layer that sets common security headers on
// every response produced below it. Headers already set by a handler are
// kept.
//
// It returns ErrInvalidFrameOption if FrameOption is set to a value other than
// "DENY", "SAMEORIGIN", or empty string.
func SecurityHeaders(cfg SecurityHeadersConfig) (Layer, error) {
	if cfg.FrameOption != "" && cfg.FrameOption != "DENY" && cfg.FrameOption != "SAMEORIGIN" {
		return nil, ErrInvalidFrameOption
	}

	headers := http.Header{}
	if !cfg.DisableContentTypeNosniff {
		headers.Set("X-Content-Type-Options", "nosniff")
	}

	frameOption := cfg.FrameOption
	if frameOption == "" {
		frameOption = "DENY"
	}
	headers.Set("X-Frame-Options", frameOption)

	referrerPolicy := cfg.ReferrerPolicy
	if referrerPolicy == "" {
		referrerPolicy = "strict-origin-when-cross-origin"
	}
	headers.Set("Referrer-Policy", referrerPolicy)

	if cfg.HSTSMaxAge > 0 {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		headers.Set("Strict-Transport-Security", hsts)
	}

	if cfg.ContentSecurityPolicy != "" {
		headers.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
	}

	return pipeline.Define(pipeline.Definition[*Response]{
		Tag: "security-headers",
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[*Response]) (pipeline.Result[*Response], error) {
			res, err := next(ctx, in)
			if err != nil {
				return res, err
			}

			return res.Map(func(resp *Response) *Response {
				if resp == nil {
					return nil
				}
				out := *resp
				out.Header = resp.Header.Clone()
				for k, v := range headers {
					if out.Header.Get(k) == "" {
						out.SetHeader(k, v[0])
					}
				}
				return &out
			}), nil
		},
	}), nil
}

// BodyLimitConfig configures the BodyLimit layer.
type BodyLimitConfig struct {
	// MaxBytes is the maximum allowed request body size in bytes.
	// Must be greater than zero.
	MaxBytes int64
}

// BodyLimit returns a layer that caps the request body handed downstream.
// Reading beyond the limit fails with an *http.MaxBytesError; a handler
// returning that error gets 413 Content Too Large from the default error
// handler.
//
// It returns ErrInvalidMaxSize if MaxBytes is not greater than zero.
func BodyLimit(cfg BodyLimitConfig) (Layer, error) {
	if cfg.MaxBytes <= 0 {
		return nil, ErrInvalidMaxSize
	}

	maxBytes := cfg.MaxBytes

	return pipeline.Define(pipeline.Definition[*Response]{
		Tag:      "body-limit",
		Requires: []string{pipeline.KeyBody},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[*Response]) (pipeline.Result[*Response], error) {
			body := io.NopCloser(BodyFrom(in))
			return next(ctx, in.With(pipeline.KeyBody, http.MaxBytesReader(nil, body, maxBytes)))
		},
	}), nil
}
