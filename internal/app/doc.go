// Package app wires application dependencies for the server and the CLI.
//
// It opens the optional Postgres and Redis connections named by the config,
// builds the geocoding resolver, pricing source and order gateway on top of
// them, and exposes the result through Wire.
package app
