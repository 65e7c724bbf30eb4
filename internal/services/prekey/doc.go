// Package prekey manages signed pre-keys and one-time pre-keys for X3DH.
//
// It rotates the current signed pre-key and assembles the public bundle a
// peer needs to start a session with this device.
package prekey
