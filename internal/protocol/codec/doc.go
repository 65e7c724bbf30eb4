// Package codec is the byte format of everything this module persists or
// sends: ratchet and prekey messages, session state, certificates and the
// sealed-sender envelope.
//
// Every encoding is a version byte followed by a CBOR array in Core
// Deterministic form. Decoding is strict and fails closed: an unknown version,
// a wrong field count or key length, trailing data, or any input that does
// not re-encode to exactly the same bytes is rejected with
// domain.ErrMalformedMessage. The mapping from values to bytes is therefore
// injective, and signatures over certificate bodies are well defined.
package codec
