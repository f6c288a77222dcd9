// Package commands defines the dispatchctl CLI.
//
// Commands
//
//   - migrate   Create the schema and seed the pricing table
//   - quote     Resolve two addresses, price a package and optionally order it
//   - track     Follow a simulated courier, for a stored order or ad hoc points
//
// # Implementation
//
// The root command loads .env and the environment into a config.Config and
// configures logging before any subcommand runs. Subcommands build only the
// dependency graph they need through app.NewWire and close it on exit.
package commands
