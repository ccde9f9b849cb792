// Package http implements the HTTP transport for RPC communication between the
// recstore CLI and the server.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Requests are posted to
//     <endpoint>/<serviceId>. Endpoints are used round-robin and a failed attempt is
//     retried on the next endpoint. Every request carries an X-Request-Id.
//
//   - httpServerTransport: Implements IRPCServerTransport. It serves the handler
//     returned by NewHandler and shuts down gracefully when the context of Listen is
//     cancelled.
//
//   - NewHandler: Routes POST /{serviceId} to the registered handler and exposes the
//     VictoriaMetrics registry at GET /metrics. In debug mode every request is logged
//     with its id and duration.
//
// Thread Safety:
//
//	The client transport is thread-safe after Connect. It uses an atomic counter for
//	the round-robin endpoint selection.
package http
