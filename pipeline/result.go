package pipeline

// Result is the outcome of running a layer: either Matched with a value or
// NotMatched. NotMatched means "this candidate does not apply" and is never
// an error; failures travel as a separate error return.
type Result[T any] struct {
	value   T
	matched bool
}

// Matched returns a matched result carrying v.
func Matched[T any](v T) Result[T] {
	return Result[T]{value: v, matched: true}
}

// NotMatched returns the declined result.
func NotMatched[T any]() Result[T] {
	return Result[T]{}
}

// IsMatched reports whether the result is Matched.
func (r Result[T]) IsMatched() bool {
	return r.matched
}

// Get returns the value and whether the result is Matched.
func (r Result[T]) Get() (T, bool) {
	return r.value, r.matched
}

// Value returns the matched value, or the zero value for NotMatched.
func (r Result[T]) Value() T {
	return r.value
}

// Map transforms the value of a Matched result and leaves NotMatched as is.
func (r Result[T]) Map(fn func(T) T) Result[T] {
	if !r.matched {
		return r
	}
	return Matched(fn(r.value))
}
