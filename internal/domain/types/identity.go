package types

// Identity holds a device's long-term X25519 and Ed25519 keys.
type Identity struct {
	Address Address        `json:"address"`
	XPub    X25519Public   `json:"xpub"`
	XPriv   X25519Private  `json:"xpriv"`
	EdPub   Ed25519Public  `json:"edpub"`
	EdPriv  Ed25519Private `json:"edpriv"`
}

// Wipe zeroes the private halves.
func (id *Identity) Wipe() {
	id.XPriv = X25519Private{}
	id.EdPriv = Ed25519Private{}
}
