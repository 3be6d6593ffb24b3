package utils

// Ptr returns a pointer to a copy of v. Payload structs use pointers to
// tell an unset field from a zero one.
func Ptr[T any](v T) *T {
	return &v
}

// ValueOr dereferences v, or returns fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
