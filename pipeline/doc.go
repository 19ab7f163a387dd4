/*
Package pipeline composes request-processing layers into routable chains.

# Layers

A Layer receives the per-request Values and a continuation (Next) standing
for the rest of the pipeline. It may decline by returning NotMatched, enrich
the Values and call next, or produce a Matched result on its own:

	guard := pipeline.Define(pipeline.Definition[string]{
		Tag:      "GET",
		Requires: []string{pipeline.KeyMethod},
		Apply: func(ctx context.Context, in pipeline.Values, next pipeline.Next[string]) (pipeline.Result[string], error) {
			if in.String(pipeline.KeyMethod) != http.MethodGet {
				return pipeline.NotMatched[string](), nil
			}
			return next(ctx, in)
		},
	})

Values are immutable. A layer passes new keys downstream with With or Merge;
upstream layers never see them.

# Chains and alternation

New and With sequence layers. Match adds an alternation: the candidates are
tried one after another in declared order and the first Matched result is
returned. A candidate that returns an error stops the alternation, so a
failure is never mistaken for "not applicable".

	root := pipeline.New[string]().Match(
		pipeline.New(getHello).Handle(helloWorld),
		pipeline.New(getHelloFoo).Handle(helloFoo),
	)

# Build

Build walks the chain once before any request is served. It checks each
layer's Contract against the keys provided upstream, folds Annotations along
every concrete route and registers finished routes with the Registries
introduced by Collect. The resulting Pipeline is what serves requests.
*/
package pipeline
