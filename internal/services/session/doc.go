// Package session establishes pairwise sessions and encrypts or decrypts
// messages on them.
//
// Every operation loads the session, advances it through the ratchet engine
// and stores the result within one unit of work. Operations on the same peer
// address are serialized; unrelated peers proceed in parallel.
package session
