// Package ratchet implements the Double Ratchet over domain.SessionState.
//
// Every message advances a symmetric KDF chain, so each message key is used
// once and earlier keys cannot be recovered from later state. Whenever the
// peer presents a new ratchet public key both sides mix a fresh X25519 output
// into the root key and start new chains.
//
// The Engine is pure: Encrypt and Decrypt take a state by value and return the
// advanced state, leaving the input untouched. Persisting the result, and
// serialising calls per session, is up to the caller.
package ratchet
