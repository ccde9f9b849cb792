package serializer

import (
	"fmt"

	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/vmihailenco/msgpack/v5"
)

// NewMsgpackSerializer creates a new serializer using msgpack encoding.
// It is the most compact of the three and the default of the CLI.
func NewMsgpackSerializer() IRPCSerializer {
	return msgpackSerializerImpl{}
}

type msgpackSerializerImpl struct{}

func (msgpackSerializerImpl) Name() string { return "msgpack" }

func (msgpackSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("msgpack: %w", err)
	}
	return b, nil
}

func (msgpackSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := msgpack.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("msgpack: %w", err)
	}
	return nil
}
