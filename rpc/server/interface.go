package server

import (
	"github.com/ValentinKolb/recstore/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It translates a request into a call of the service it wraps
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it is set in the response together with its record.RetCode
	Handle(req *common.Message) (resp *common.Message)
}
