package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/web"
	"gopkg.in/yaml.v3"
)

// HandleConfig configures the endpoints serving the document.
//
// See: https://spec.openapis.org/oas/v3.0.3#openapi-document
type HandleConfig struct {
	// JSONPath is the path of the JSON endpoint
	// (default: "/openapi.json"). Set to "-" to disable.
	JSONPath string

	// YAMLPath is the path of the YAML endpoint
	// (default: "/openapi.yaml"). Set to "-" to disable.
	YAMLPath string
}

// jsonPath returns the configured JSON path, defaulting to "/openapi.json".
func (cfg HandleConfig) jsonPath() string {
	if cfg.JSONPath == "" {
		return "/openapi.json"
	}
	return cfg.JSONPath
}

// yamlPath returns the configured YAML path, defaulting to "/openapi.yaml".
func (cfg HandleConfig) yamlPath() string {
	if cfg.YAMLPath == "" {
		return "/openapi.yaml"
	}
	return cfg.YAMLPath
}

// document builds the OpenAPI document once, on first use, and caches both
// serializations. Routes are registered when the pipeline is built, which
// happens before the first request can reach the document.
type document struct {
	reg  *pipeline.Registry
	info Info
	cfg  HandleConfig

	once     sync.Once
	json     []byte
	yaml     []byte
	buildErr error
}

func newDocument(reg *pipeline.Registry, info Info, cfg HandleConfig) *document {
	if reg == nil {
		panic("openapi: nil registry")
	}
	return &document{reg: reg, info: info, cfg: cfg}
}

func (d *document) build() {
	spec, err := Build(d.reg, d.info)
	if err != nil {
		d.buildErr = err
		return
	}

	d.json, d.buildErr = json.MarshalIndent(spec, "", "  ")
	if d.buildErr != nil {
		return
	}

	d.yaml, d.buildErr = jsonToYAML(d.json)
}

// endpoint reports whether path is one of the document endpoints and
// whether it is the YAML one.
func (d *document) endpoint(path string) (yamlDoc, ok bool) {
	switch {
	case path == d.cfg.jsonPath() && d.cfg.jsonPath() != "-":
		return false, true
	case path == d.cfg.yamlPath() && d.cfg.yamlPath() != "-":
		return true, true
	}
	return false, false
}

// serialized returns the document body and content type, building it on
// first use.
func (d *document) serialized(yamlDoc bool) ([]byte, string, error) {
	d.once.Do(d.build)
	if d.buildErr != nil {
		return nil, "", d.buildErr
	}

	if yamlDoc {
		return d.yaml, "application/x-yaml", nil
	}
	return d.json, "application/json", nil
}

// Handler returns an http.Handler serving the document built from reg at
// the configured JSON and YAML paths. Other paths and methods get 404.
func Handler(reg *pipeline.Registry, info Info, cfg HandleConfig) http.Handler {
	doc := newDocument(reg, info, cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}

		yamlDoc, ok := doc.endpoint(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		body, contentType, err := doc.serialized(yamlDoc)
		if err != nil {
			http.Error(w, "failed to build OpenAPI document", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}

// Layer returns a pipeline layer answering GET requests for the document
// endpoints from inside a chain. Any other request is passed on to the
// rest of the chain.
//
//	reg := pipeline.NewRegistry()
//	api := web.New(
//		openapi.Layer(reg, openapi.Info{Title: "API", Version: "1.0.0"}, openapi.HandleConfig{}),
//		pipeline.Collect[*web.Response](reg),
//	).Match(routes...)
//
// A failure to build the document is returned as a fault.
func Layer(reg *pipeline.Registry, info Info, cfg HandleConfig) web.Layer {
	doc := newDocument(reg, info, cfg)

	return pipeline.Define(pipeline.Definition[*web.Response]{
		Tag:      "openapi",
		Requires: []string{pipeline.KeyMethod, pipeline.KeyPath},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[*web.Response]) (pipeline.Result[*web.Response], error) {
			if strings.ToUpper(in.String(pipeline.KeyMethod)) != http.MethodGet {
				return next(ctx, in)
			}

			yamlDoc, ok := doc.endpoint(in.String(pipeline.KeyPath))
			if !ok {
				return next(ctx, in)
			}

			body, contentType, err := doc.serialized(yamlDoc)
			if err != nil {
				return pipeline.NotMatched[*web.Response](), err
			}

			return pipeline.Matched(&web.Response{
				Status: http.StatusOK,
				Header: http.Header{"Content-Type": {contentType}},
				Body:   body,
			}), nil
		},
	})
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key
// order. Scalars are quoted only where YAML needs it.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
