// Package cmd implements the command-line interface of recstore. It provides
// a hierarchical command structure with operations for running the server and
// interacting with its services as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server with the configured lottery and voting services
//   - lottery: Client commands of a lottery service (buy, draw, join, results, ...)
//   - vote: Client commands of a voting service (add, tally, most, ...) and a benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set as environment variables with the prefix RECSTORE_
// (e.g. RECSTORE_ENDPOINTS), .env and .env.local files are read on startup.
//
// See recstore -help for a list of all commands.
package cmd
