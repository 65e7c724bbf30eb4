// Package memzero erases secret material from memory.
package memzero

import "github.com/awnumar/memguard"

// Zero overwrites b with zeros.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}

// Scope collects buffers holding key material and wipes all of them at once.
// The usual pattern is
//
//	var sc memzero.Scope
//	defer sc.Wipe()
//	dh := sc.Track(shared[:])
//
// so that every return path, including errors, erases the buffers.
type Scope struct {
	bufs [][]byte
}

// Track registers b for wiping and returns it unchanged.
func (s *Scope) Track(b []byte) []byte {
	s.bufs = append(s.bufs, b)
	return b
}

// Key registers a fixed-size key for wiping and returns it unchanged.
func (s *Scope) Key(k *[32]byte) *[32]byte {
	s.bufs = append(s.bufs, k[:])
	return k
}

// Wipe zeroes every tracked buffer. It is safe to call more than once.
func (s *Scope) Wipe() {
	for _, b := range s.bufs {
		Zero(b)
	}
	s.bufs = s.bufs[:0]
}
