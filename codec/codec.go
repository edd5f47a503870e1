// Package codec maps typed values to the bytes rkv stores.
//
// Each value kind is its own Codec variant: String, Bytes, Int64 and Float64
// for scalars; JSON, Msgpack, CBOR and Protobuf for structured values.
// Int64 and Float64 write decimal text, so keys written through them can be
// changed with Client.IncrementInt and Client.IncrementFloat.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
