package openapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/strata/pipeline"
	"github.com/vitalvas/strata/web"
	"gopkg.in/yaml.v3"
)

var testInfo = Info{Title: "Greeter", Version: "1.0.0"}

func TestHandler(t *testing.T) {
	reg := collect(t,
		web.New(web.Route(http.MethodGet, "/hello/:world")).Handle(noop),
	)
	h := Handler(reg, testInfo, HandleConfig{})

	t.Run("json", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var doc map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, Version, doc["openapi"])
		assert.Contains(t, doc["paths"], "/hello/{world}")
	})

	t.Run("yaml", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/x-yaml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "openapi: 3.0.3\n")

		var doc map[string]any
		require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, Version, doc["openapi"])
		assert.Contains(t, doc["paths"], "/hello/{world}")

		info, ok := doc["info"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "1.0.0", info["version"])
	})

	t.Run("other path", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("other method", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/openapi.json", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("panics on nil registry", func(t *testing.T) {
		assert.Panics(t, func() {
			Handler(nil, testInfo, HandleConfig{})
		})
	})
}

func TestHandlerConfig(t *testing.T) {
	reg := pipeline.NewRegistry()
	h := Handler(reg, testInfo, HandleConfig{JSONPath: "/api/schema.json", YAMLPath: "-"})

	tests := []struct {
		path   string
		status int
	}{
		{"/api/schema.json", http.StatusOK},
		{"/openapi.json", http.StatusNotFound},
		{"/openapi.yaml", http.StatusNotFound},
		{"/-", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestLayer(t *testing.T) {
	reg := pipeline.NewRegistry()

	api := web.New(
		Layer(reg, testInfo, HandleConfig{}),
		pipeline.Collect[*web.Response](reg),
	).Match(
		web.New(web.Describe("Greets someone"), web.Route(http.MethodGet, "/hello/:world")).Handle(noop),
		web.New(web.Route(http.MethodGet, "/hello")).Handle(noop),
	)

	p, err := api.Build(web.RequestKeys)
	require.NoError(t, err)
	h := web.NewHandler(p, web.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	t.Run("serves document from the chain", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var doc struct {
			Paths map[string]map[string]struct {
				Description string `json:"description"`
			} `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Len(t, doc.Paths, 2)
		assert.Equal(t, "Greets someone", doc.Paths["/hello/{world}"]["get"].Description)
		assert.Contains(t, doc.Paths, "/hello")
	})

	t.Run("passes other requests on", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hello/a", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/openapi.json", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("is not registered as a route", func(t *testing.T) {
		assert.Equal(t, 2, reg.Len())
	})

	t.Run("tag", func(t *testing.T) {
		assert.Equal(t, "openapi", web.New(Layer(reg, testInfo, HandleConfig{})).String())
	})
}

func TestLayerBuildError(t *testing.T) {
	reg := pipeline.NewRegistry()
	reg.Register(pipeline.NewAnnotation(map[string]any{
		pipeline.AnnotationMethod: http.MethodGet,
		pipeline.AnnotationPath:   "/:rest*/x",
	}))

	p := web.New(Layer(reg, testInfo, HandleConfig{})).Handle(noop).MustBuild(web.RequestKeys)

	res, err := p.Run(context.Background(), pipeline.NewValues(map[string]any{
		pipeline.KeyMethod: http.MethodGet,
		pipeline.KeyPath:   "/openapi.json",
	}))
	assert.Error(t, err)
	assert.False(t, res.IsMatched())
}
