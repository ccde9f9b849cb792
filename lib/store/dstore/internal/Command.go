package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/store"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTSet    CommandType = iota // Insert or update an entry.
	CommandTDelete                    // Delete an entry.
	CommandTBatch                     // Apply several mutations atomically.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTSet:
		return "Set"
	case CommandTDelete:
		return "Delete"
	case CommandTBatch:
		return "Batch"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the corresponding db.Feature.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTSet:
		return db.FeatureSet, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	case CommandTBatch:
		return db.FeatureApply, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

const (
	mutationKindSet    byte = 0
	mutationKindDelete byte = 1

	guardKindHolds   byte = 0
	guardKindMissing byte = 1
)

// Command represents a command to be executed by the state machine (a single entry in the raft log).
// Set and Delete carry exactly one mutation, Batch any number. The mutations are only
// applied if all guards hold.
type Command struct {
	Type      CommandType
	Mutations []db.Mutation
	Guards    []store.Guard
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	size := 1 + 4 + 4 // Type + MutationCount + GuardCount
	for _, m := range command.Mutations {
		size += 1 + 4 + len(m.Key) + 4 + len(m.Value) // Kind + KeyLen + Key + ValueLen + Value
	}
	for _, g := range command.Guards {
		size += 1 + 4 + len(g.Key) + 4 + len(g.Value)
	}
	return size
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 4 bytes for the number of mutations (big endian),
// per mutation:
// 1 byte for the kind (set or delete),
// 4 bytes for key length (big endian),
// N bytes for key data,
// 4 bytes for value length (big endian),
// N bytes for value data,
// 4 bytes for the number of guards (big endian),
// per guard the same layout as a mutation (kind holds or missing)
func (command *Command) Serialize() []byte {
	result := make([]byte, 0, command.SizeBytes())

	result = append(result, byte(command.Type))
	result = binary.BigEndian.AppendUint32(result, uint32(len(command.Mutations)))
	for _, m := range command.Mutations {
		kind := mutationKindSet
		if m.Delete {
			kind = mutationKindDelete
		}
		result = appendEntry(result, kind, m.Key, m.Value)
	}

	result = binary.BigEndian.AppendUint32(result, uint32(len(command.Guards)))
	for _, g := range command.Guards {
		kind := guardKindHolds
		if g.Missing {
			kind = guardKindMissing
		}
		result = appendEntry(result, kind, g.Key, g.Value)
	}

	return result
}

func appendEntry(b []byte, kind byte, key string, value []byte) []byte {
	b = append(b, kind)
	b = binary.BigEndian.AppendUint32(b, uint32(len(key)))
	b = append(b, key...)
	b = binary.BigEndian.AppendUint32(b, uint32(len(value)))
	return append(b, value...)
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	// Minimum size: 1 (Type) + 4 (Count)
	if len(data) < 5 {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	count := binary.BigEndian.Uint32(data[1:5])

	// every mutation needs at least 9 bytes, this guards the allocation below
	if uint64(count)*9 > uint64(len(data)-5) {
		return fmt.Errorf("data too short for %d mutations", count)
	}

	command.Mutations = make([]db.Mutation, 0, count)
	pos := 5
	for i := uint32(0); i < count; i++ {
		if len(data) < pos+1 {
			return fmt.Errorf("data too short for mutation %d", i)
		}
		kind := data[pos]
		if kind != mutationKindSet && kind != mutationKindDelete {
			return fmt.Errorf("unknown mutation kind %d", kind)
		}

		key, value, next, err := readEntry(data, pos+1)
		if err != nil {
			return err
		}
		pos = next

		command.Mutations = append(command.Mutations, db.Mutation{Key: key, Value: value, Delete: kind == mutationKindDelete})
	}

	if len(data) < pos+4 {
		return fmt.Errorf("data too short for guard count")
	}
	guards := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if uint64(guards)*9 > uint64(len(data)-pos) {
		return fmt.Errorf("data too short for %d guards", guards)
	}

	command.Guards = nil
	for i := uint32(0); i < guards; i++ {
		if len(data) < pos+1 {
			return fmt.Errorf("data too short for guard %d", i)
		}
		kind := data[pos]
		if kind != guardKindHolds && kind != guardKindMissing {
			return fmt.Errorf("unknown guard kind %d", kind)
		}

		key, value, next, err := readEntry(data, pos+1)
		if err != nil {
			return err
		}
		pos = next

		command.Guards = append(command.Guards, store.Guard{Key: key, Value: value, Missing: kind == guardKindMissing})
	}

	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after command", len(data)-pos)
	}

	switch command.Type {
	case CommandTSet, CommandTDelete:
		if len(command.Mutations) != 1 {
			return fmt.Errorf("%s command needs exactly one mutation, got %d", command.Type, len(command.Mutations))
		}
	}

	return nil
}

// readEntry reads the key and value starting at pos and returns the position after them.
// An empty value is returned as nil.
func readEntry(data []byte, pos int) (string, []byte, int, error) {
	if len(data) < pos+4 {
		return "", nil, 0, fmt.Errorf("data too short for key length")
	}
	keyLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if len(data) < pos+keyLen+4 {
		return "", nil, 0, fmt.Errorf("data too short for key of length %d", keyLen)
	}
	key := string(data[pos : pos+keyLen])
	pos += keyLen

	valueLen := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if len(data) < pos+valueLen {
		return "", nil, 0, fmt.Errorf("data too short for value of length %d", valueLen)
	}
	var value []byte
	if valueLen > 0 {
		value = make([]byte, valueLen)
		copy(value, data[pos:pos+valueLen])
	}
	return key, value, pos + valueLen, nil
}
