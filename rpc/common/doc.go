// Package common provides the data structures and utilities shared by the RPC client,
// server and transports. It defines the message protocol, the configuration structures
// and the logger used across the application.
//
// The package focuses on:
//   - Message protocol definition for lottery and voting operations
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. Requests carry the
//     operation arguments (ids, names, numbers, time range), responses carry the
//     msgpack encoded result in Value and a failure as record.RetCode plus message,
//     so clients can rebuild a typed record.Error.
//
//   - MessageType: Enumeration of all supported operations, grouped into lottery
//     operations, voting operations and control messages.
//
//   - ServerConfig: Configuration of a server node: the services it exposes (see
//     ParseServices), RAFT parameters, storage location and the HTTP endpoint.
//
//   - ClientConfig: Configuration for client components, controlling endpoints,
//     timeouts and retry behavior.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
