// Package serializer provides message serialization for the RPC system. It defines a
// common interface and multiple implementations for serializing and deserializing
// messages between client and server components.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - msgpackSerializerImpl: Compact binary encoding (vmihailenco/msgpack). Short field
//     names and omitted empty fields keep the payload small. Recommended for production use.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging or talking to the server
//     with curl. Message types are written as their names ("vote.add"), unknown
//     fields are rejected.
//
//   - gobSerializerImpl: Go's built-in gob encoding. Works, but produces the largest
//     payloads since every message carries its type description.
//
//   - FromName: Maps the configuration value ("json", "gob", "msgpack") to a serializer,
//     Names lists the valid values.
//
// Thread Safety:
//
//	All serializer implementations are safe for concurrent use across multiple
//	goroutines without additional synchronization (gob only shares a buffer pool).
//
// Usage:
//
//	Serializers are typically created once and reused throughout the application:
//
//	  serializer := serializer.NewMsgpackSerializer()
//	  data, err := serializer.Serialize(message)
//	  // ... send data ...
//	  var receivedMsg common.Message
//	  err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
