// Package codec serializes generated method results for storage.
//
// Method results are untyped, so the policy layer works with Codec[any].
// Decoded values come back in the codec's generic shapes (maps, slices,
// numbers); use methodcache.Invoke[T] to get them back as a concrete type.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
