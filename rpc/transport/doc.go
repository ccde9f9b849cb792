// Package transport defines the interfaces for RPC communication between the
// recstore CLI and the server. It provides a common contract so the client and
// server code do not depend on a concrete protocol.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and routes them to the handler of the addressed service.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// The http subpackage provides the implementation used by the recstore binary.
package transport
