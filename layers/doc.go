/*
Package layers provides stock pipeline layers.

Guards decline requests they do not apply to, so the enclosing alternation
moves on to the next candidate:

  - Method, Path, Route: method and path template guards
  - ContentType: request body media type guard
  - Accept: response media type negotiation guard

Enrichers add Values for the layers below them:

  - Query: parsed query string
  - RequestID: generated or propagated request ID
  - MethodOverride: method taken from an override header
  - Scoped: a scope.Scope closed when the request completes

Annotators only contribute route metadata at build time:

  - Describe, Summary, Tags, ResponseSchema

Timeout and Trace wrap the rest of the pipeline with a deadline and an
OpenTelemetry span respectively.

Constructors that validate their configuration return an error alongside
the layer:

	timeout, err := layers.Timeout[*web.Response](layers.TimeoutConfig{
		Duration: 5 * time.Second,
	})
	if err != nil {
		return err
	}
*/
package layers
