// Package openapi builds an OpenAPI 3 document from the routes collected in
// a pipeline.Registry and serves it as JSON and YAML.
//
// Each registered route becomes one operation. The method and path come
// from the route annotation; path captures become required string
// parameters; description, summary and tags are copied over; a declared
// response schema sample is reflected into a JSON Schema for the 200
// response.
//
// See: https://spec.openapis.org/oas/v3.0.3
//
// # Serving the Document
//
// Build returns the document model. Handler serves it over net/http, and
// Layer serves it from inside a chain:
//
//	reg := pipeline.NewRegistry()
//	info := openapi.Info{Title: "Greeter", Version: "1.0.0"}
//
//	api := web.New(
//		openapi.Layer(reg, info, openapi.HandleConfig{}),
//		pipeline.Collect[*web.Response](reg),
//	).Match(
//		web.New(
//			web.Describe("Greets someone"),
//			layers.ResponseSchema[*web.Response]("application/json", Greeting{}),
//			web.Route(http.MethodGet, "/hello/:name"),
//		).Handle(hello),
//	)
//
// The document is built on the first request for it and cached.
package openapi
