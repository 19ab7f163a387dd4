package layers

import "github.com/vitalvas/strata/pipeline"

// Describe annotates the routes below it with a free-text description.
func Describe[T any](text string) pipeline.Layer[T] {
	return pipeline.Annotate[T]("describe", map[string]any{
		pipeline.AnnotationDescription: text,
	})
}

// Summary annotates the routes below it with a short summary.
func Summary[T any](text string) pipeline.Layer[T] {
	return pipeline.Annotate[T]("summary", map[string]any{
		pipeline.AnnotationSummary: text,
	})
}

// Tags annotates the routes below it with grouping tags.
func Tags[T any](tags ...string) pipeline.Layer[T] {
	return pipeline.Annotate[T]("tags", map[string]any{
		pipeline.AnnotationTags: append([]string(nil), tags...),
	})
}

// ResponseSchema declares the response body of the routes below it. sample
// is a value of the Go type the body is encoded from; introspection reflects
// its JSON schema.
func ResponseSchema[T any](contentType string, sample any) pipeline.Layer[T] {
	return pipeline.Annotate[T]("response-schema", map[string]any{
		pipeline.AnnotationResponseContentType: contentType,
		pipeline.AnnotationResponseSchema:      sample,
	})
}
