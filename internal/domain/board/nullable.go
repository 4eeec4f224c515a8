package board

import (
	"bytes"
	"encoding/json"
)

// Nullable is an update field with three states: unset (the zero value),
// set to a value, or explicitly null.
type Nullable[T any] struct {
	value T
	set   bool
	null  bool
}

// Set returns a Nullable holding v.
func Set[T any](v T) Nullable[T] {
	return Nullable[T]{value: v, set: true}
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{set: true, null: true}
}

// IsZero reports whether the field is unset. Used by omitzero.
func (n Nullable[T]) IsZero() bool {
	return !n.set
}

// IsNull reports whether the field clears the stored value.
func (n Nullable[T]) IsNull() bool {
	return n.set && n.null
}

// Get returns the value and whether one is present.
func (n Nullable[T]) Get() (T, bool) {
	return n.value, n.set && !n.null
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.set || n.null {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Set(v)
	return nil
}
