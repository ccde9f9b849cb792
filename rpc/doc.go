// Package rpc provides the remote access to the lottery and voting services.
// It is the communication layer between the recstore CLI and the server.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstraction with the HTTP implementation.
//
//   - serializer: Message serialization with multiple format options (msgpack, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: RPC clients implementing lottery.ILottery and voting.IVoting.
//
//   - server: RPC server that creates the services and routes requests to their adapters.
package rpc
