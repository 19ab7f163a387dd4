package pipeline

import "sort"

// Well-known Values keys set by the transport and the stock layers.
const (
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyURL       = "url"
	KeyHeader    = "header"
	KeyBody      = "body"
	KeyParams    = "params"
	KeyQuery     = "query"
	KeyRequestID = "requestID"
	KeyScope     = "scope"
)

// Well-known Annotation keys.
const (
	AnnotationMethod              = "method"
	AnnotationPath                = "path"
	AnnotationDescription         = "description"
	AnnotationSummary             = "summary"
	AnnotationResponseContentType = "responseContentType"
	AnnotationResponseSchema      = "responseSchema"
	AnnotationTags                = "tags"
)

// Getter is implemented by Values and Annotation.
type Getter interface {
	Get(key string) (any, bool)
}

// Get returns the value stored under key converted to V. The boolean is
// false when the key is missing or holds a value of another type.
func Get[V any](g Getter, key string) (V, bool) {
	var zero V
	raw, ok := g.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Values is the per-request context threaded through a pipeline. It is
// immutable: With and Merge return a new Values and never touch the receiver,
// so a layer can only add keys for the layers below it.
//
// The zero Values is empty and ready to use.
type Values struct {
	m map[string]any
}

// NewValues returns Values holding a copy of kv.
func NewValues(kv map[string]any) Values {
	return Values{m: merge(nil, kv)}
}

// Get returns the value stored under key.
func (v Values) Get(key string) (any, bool) {
	val, ok := v.m[key]
	return val, ok
}

// String returns the string stored under key, or "" when the key is missing
// or not a string.
func (v Values) String(key string) string {
	s, _ := Get[string](v, key)
	return s
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v.m[key]
	return ok
}

// With returns a copy of v with key set to value.
func (v Values) With(key string, value any) Values {
	return Values{m: merge(v.m, map[string]any{key: value})}
}

// Merge returns a copy of v with every entry of kv added.
func (v Values) Merge(kv map[string]any) Values {
	return Values{m: merge(v.m, kv)}
}

// Keys returns the keys in sorted order.
func (v Values) Keys() []string {
	return keys(v.m)
}

// Len returns the number of keys.
func (v Values) Len() int {
	return len(v.m)
}

// Annotation is the declaration-time counterpart of Values. It accumulates
// per-route metadata such as method, path and description while a chain is
// built, and is never touched by a request.
type Annotation struct {
	m map[string]any
}

// NewAnnotation returns an Annotation holding a copy of kv.
func NewAnnotation(kv map[string]any) Annotation {
	return Annotation{m: merge(nil, kv)}
}

// Get returns the value stored under key.
func (a Annotation) Get(key string) (any, bool) {
	val, ok := a.m[key]
	return val, ok
}

// String returns the string stored under key, or "".
func (a Annotation) String(key string) string {
	s, _ := Get[string](a, key)
	return s
}

// With returns a copy of a with key set to value.
func (a Annotation) With(key string, value any) Annotation {
	return Annotation{m: merge(a.m, map[string]any{key: value})}
}

// Merge returns a copy of a with every entry of kv added.
func (a Annotation) Merge(kv map[string]any) Annotation {
	return Annotation{m: merge(a.m, kv)}
}

// Keys returns the keys in sorted order.
func (a Annotation) Keys() []string {
	return keys(a.m)
}

// Map returns a copy of the underlying entries.
func (a Annotation) Map() map[string]any {
	return merge(nil, a.m)
}

// Method returns the annotated request method.
func (a Annotation) Method() string {
	return a.String(AnnotationMethod)
}

// Path returns the annotated route template.
func (a Annotation) Path() string {
	return a.String(AnnotationPath)
}

// Description returns the annotated free-text description.
func (a Annotation) Description() string {
	return a.String(AnnotationDescription)
}

func merge(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
