package openapi

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/vitalvas/strata/pattern"
	"github.com/vitalvas/strata/pipeline"
	"github.com/z5labs/sdk-go/ptr"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.0.3"

// pathVarRegexp matches path parameters in the form {name}.
var pathVarRegexp = regexp.MustCompile(`\{[^}]+\}`)

// Info provides metadata about the API.
//
// See: https://spec.openapis.org/oas/v3.0.3#info-object
type Info struct {
	Title       string
	Version     string
	Description string
}

// Build returns an OpenAPI document with one operation per route in reg.
//
// Routes lacking a method or a path annotation are not addressable and are
// left out. When a method and path pair is registered more than once, the
// first declaration wins, as it does at request time.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-object
func Build(reg *pipeline.Registry, info Info) (*openapi3.Spec, error) {
	spec := &openapi3.Spec{
		Openapi: Version,
		Info: openapi3.Info{
			Title:   info.Title,
			Version: info.Version,
		},
	}
	if info.Description != "" {
		spec.Info.Description = ptr.Ref(info.Description)
	}

	seen := make(map[string]struct{})

	for _, route := range reg.Routes() {
		method, template := route.Method(), route.Path()
		if method == "" || template == "" {
			continue
		}

		p, err := pattern.Compile(template)
		if err != nil {
			return nil, err
		}

		// Templates differing only in capture names match the same requests.
		key := method + " " + pathVarRegexp.ReplaceAllString(p.OpenAPIPath(), "{}")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		op, err := operation(route, p)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s %s: %w", method, template, err)
		}

		if err := spec.AddOperation(strings.ToLower(method), p.OpenAPIPath(), op); err != nil {
			return nil, fmt.Errorf("openapi: %s %s: %w", method, template, err)
		}
	}

	return spec, nil
}

func operation(route pipeline.Annotation, p *pattern.Pattern) (openapi3.Operation, error) {
	var op openapi3.Operation

	if s := route.String(pipeline.AnnotationSummary); s != "" {
		op.Summary = ptr.Ref(s)
	}
	if d := route.Description(); d != "" {
		op.Description = ptr.Ref(d)
	}
	if tags, ok := pipeline.Get[[]string](route, pipeline.AnnotationTags); ok {
		op.Tags = append([]string(nil), tags...)
	}

	for _, name := range p.Names() {
		op.Parameters = append(op.Parameters, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeString),
					},
				},
			},
		})
	}

	resp, err := response(route)
	if err != nil {
		return op, err
	}

	op.Responses = openapi3.Responses{
		MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
			fmt.Sprint(http.StatusOK): {Response: resp},
		},
	}

	return op, nil
}

func response(route pipeline.Annotation) (*openapi3.Response, error) {
	resp := &openapi3.Response{Description: "Success"}

	contentType := route.String(pipeline.AnnotationResponseContentType)
	if contentType == "" {
		return resp, nil
	}

	var media openapi3.MediaType
	if sample, ok := route.Get(pipeline.AnnotationResponseSchema); ok && sample != nil {
		var reflector jsonschema.Reflector

		jsonSchema, err := reflector.Reflect(sample, jsonschema.InlineRefs)
		if err != nil {
			return nil, err
		}

		var schemaOrRef openapi3.SchemaOrRef
		schemaOrRef.FromJSONSchema(jsonSchema.ToSchemaOrBool())
		media.Schema = &schemaOrRef
	}

	resp.Content = map[string]openapi3.MediaType{
		contentType: media,
	}

	return resp, nil
}
