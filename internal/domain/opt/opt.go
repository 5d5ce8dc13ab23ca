// Package opt distinguishes an unknown value from a known zero.
package opt

// Number is the set of types an optional feature may carry.
type Number interface {
	~int | ~float64
}

// Value is either known (with a value) or unknown.
// The zero Value is unknown.
type Value[T Number] struct {
	v     T
	known bool
}

// Of returns a known value.
func Of[T Number](v T) Value[T] {
	return Value[T]{v: v, known: true}
}

// Unknown returns an unknown value.
func Unknown[T Number]() Value[T] {
	return Value[T]{}
}

// Known reports whether the value was determined.
func (o Value[T]) Known() bool { return o.known }

// Get returns the value and whether it is known.
func (o Value[T]) Get() (T, bool) { return o.v, o.known }

// Or returns the value when known, otherwise fallback.
func (o Value[T]) Or(fallback T) T {
	if o.known {
		return o.v
	}
	return fallback
}

// OrElse returns o when known, otherwise other.
func (o Value[T]) OrElse(other Value[T]) Value[T] {
	if o.known {
		return o
	}
	return other
}

// Ptr returns a pointer to a copy of the value, or nil when unknown.
func (o Value[T]) Ptr() *T {
	if !o.known {
		return nil
	}
	v := o.v
	return &v
}
