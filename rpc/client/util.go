package client

import (
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/ValentinKolb/recstore/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPC lottery and voting clients with composition pattern
type rpcClientAdapter struct {
	serviceId  uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// newClientAdapter connects the transport and returns the shared client state
func newClientAdapter(
	serviceId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (rpcClientAdapter, error) {
	if err := transport.Connect(config); err != nil {
		return rpcClientAdapter{}, err
	}
	return rpcClientAdapter{
		serviceId:  serviceId,
		config:     config,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// Close closes the transport of the client
func (c *rpcClientAdapter) Close() error {
	return c.transport.Close()
}

// invoke sends the request and checks the response. A failed operation is returned as
// the *record.Error the service reported, transport and protocol failures as RetCInternal.
func (c *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := c.serializer.Serialize(*req)
	if err != nil {
		return nil, record.Errorf(record.RetCInternal, "rpc: serialize request: %v", err)
	}

	// Send the handler
	respBytes, err := c.transport.Send(c.serviceId, reqBytes)
	if err != nil {
		Logger.Debugf("%s request to service %d failed: %v", req.MsgType, c.serviceId, err)
		return nil, record.Errorf(record.RetCInternal, "rpc: %v", err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := c.serializer.Deserialize(respBytes, resp); err != nil {
		return nil, record.Errorf(record.RetCInternal, "rpc: deserialize response: %v", err)
	}

	// Check if the response is an error response
	if err := resp.ToError(); err != nil {
		return nil, err
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, record.Errorf(record.RetCInternal, "rpc: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}

// call invokes req and decodes the result into a value of type R
func call[R any](c *rpcClientAdapter, req *common.Message) (R, error) {
	var result R
	resp, err := c.invoke(req)
	if err != nil {
		return result, err
	}
	if err := common.DecodeResult(resp.Value, &result); err != nil {
		return result, record.Errorf(record.RetCInternal, "rpc: decode %s result: %v", req.MsgType, err)
	}
	return result, nil
}

// exec invokes a request that has no result
func exec(c *rpcClientAdapter, req *common.Message) error {
	_, err := c.invoke(req)
	return err
}
