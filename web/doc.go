/*
Package web adapts pipelines producing *Response to net/http.

A Handler seeds each request's Values with the method, the cleaned escaped path,
the URL, the header and the body reader, then runs the pipeline with the
request context as its cancellation signal:

	api := web.New(web.RequestID(web.RequestIDConfig{}), web.EncodeJSON(web.JSONConfig{})).Match(
		web.New(web.Route(http.MethodGet, "/hello/:name")).Handle(hello),
		web.New(web.Route(http.MethodGet, "/health")).Handle(health),
	)

	p, err := api.Build(web.RequestKeys)
	if err != nil {
		log.Fatal(err)
	}

	http.ListenAndServe(":8080", web.NewHandler(p, web.Config{}))

Outcomes map to HTTP as follows:

  - a matched *Response is written as is
  - a request no route accepted goes to Config.NotFoundHandler (404)
  - an error or a panic is logged and goes to Config.ErrorHandler (500, or
    413 for a body cut off by BodyLimit)

Work interrupted through a scope is not a fault; handlers decide what to
answer in that case.
*/
package web
