// Package app wires application dependencies for the CLI.
//
// LoadConfig reads the environment (and an optional .env file in the home
// directory). NewWire builds the selected store, the ratchet engine, metrics
// and the high-level services from a Config, exposing them via the Wire
// struct for commands to use.
package app
