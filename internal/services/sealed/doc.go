// Package sealed sends and receives sealed-sender messages.
//
// Outgoing plaintext is encrypted on the pairwise session and then sealed so
// that only the recipient learns who sent it. Incoming envelopes are unsealed,
// their sender certificate is checked against the stored trust root, and the
// inner message is decrypted on the sender's session.
package sealed
