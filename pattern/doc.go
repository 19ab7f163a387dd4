/*
Package pattern compiles route templates and matches request paths against
them.

Templates are split on "/" into segments:

	/hello/:world        ":world" captures exactly one segment
	/files/:rest*        ":rest*" captures the rest of the path, joined by "/"
	/static/about        literal segments must match exactly

	p := pattern.MustCompile("/hello/:world/:foo")
	vars, ok := p.Match("/hello/x/y")
	// ok == true, vars == map[string]string{"world": "x", "foo": "y"}

A wildcard capture must be the final segment. An empty remainder still
matches and is captured as the empty string, so "/files/:rest*" matches
"/files" with rest == "".

There is no specificity ranking between patterns. When several patterns
could match the same path, the enclosing alternation decides purely by
declaration order.
*/
package pattern
