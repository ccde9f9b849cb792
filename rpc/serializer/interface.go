package serializer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ValentinKolb/recstore/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Name is the name the serializer is selected with (see FromName)
	Name() string
	// Serialize serializes a Message into a byte array
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into msg
	Deserialize(b []byte, msg *common.Message) error
}

// registry of all serializers by name
var registry = map[string]func() IRPCSerializer{
	"json":    NewJSONSerializer,
	"gob":     NewGOBSerializer,
	"msgpack": NewMsgpackSerializer,
}

// Names returns the names of all serializers, sorted
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FromName returns a new serializer for name (case-insensitive)
func FromName(name string) (IRPCSerializer, error) {
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown serializer %q (must be one of %s)", name, strings.Join(Names(), ", "))
	}
	return factory(), nil
}
