// Package commands defines the umbra CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init           Create the local identity
//   - keyid          Print the address and identity key id
//   - prekeys        Generate pre-keys and write the public bundle
//   - trust          Manage the sealed-sender trust root and revocations
//   - authority      Run a local certificate authority (init, issue)
//   - start-session  Establish an X3DH session from a peer's bundle
//   - end-session    Delete the session with a peer
//   - seal           Encrypt and seal a message for a peer
//   - unseal         Unseal and decrypt a received envelope
//
// # Implementation
//
// The root command loads the configuration, applies flag overrides and builds
// the dependency graph (store, engine, services, metrics) before any
// subcommand runs. Everything is local: envelopes and bundles are exchanged
// as files or base64 text.
package commands
