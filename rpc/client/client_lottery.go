package client

import (
	"github.com/ValentinKolb/recstore/lib/lottery"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/ValentinKolb/recstore/rpc/transport"
)

// LotteryClient is a lottery.ILottery that forwards every call to a lottery service
type LotteryClient struct {
	rpcClientAdapter
}

var _ lottery.ILottery = (*LotteryClient)(nil)

// NewRPCLottery creates a new RPC lottery client.
// The function takes a service ID, a config, a transport and a serializer as parameters
func NewRPCLottery(
	serviceId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*LotteryClient, error) {
	adapter, err := newClientAdapter(serviceId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &LotteryClient{adapter}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see lottery.ILottery)
// --------------------------------------------------------------------------

func (c *LotteryClient) BuyTicket(owner string, numbers []uint32) (lottery.Ticket, error) {
	return call[lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotBuy, Owner: owner, Numbers: numbers})
}

func (c *LotteryClient) CheckTicket(id uint64) (lottery.Ticket, error) {
	return call[lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotCheck, ID: id})
}

func (c *LotteryClient) UpdateTicket(id uint64, numbers []uint32) (lottery.Ticket, error) {
	return call[lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotUpdate, ID: id, Numbers: numbers})
}

func (c *LotteryClient) DeleteTicket(id uint64) (lottery.Ticket, error) {
	return call[lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotDelete, ID: id})
}

func (c *LotteryClient) ConductDraw(winning []uint32) (lottery.Draw, error) {
	return call[lottery.Draw](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotDraw, Numbers: winning})
}

func (c *LotteryClient) GetDraw(id uint64) (lottery.Draw, error) {
	return call[lottery.Draw](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotGetDraw, ID: id})
}

func (c *LotteryClient) Participate(ticketID, drawID uint64) (lottery.Draw, error) {
	return call[lottery.Draw](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotJoin, ID: ticketID, DrawID: drawID})
}

func (c *LotteryClient) AllTickets() ([]lottery.Ticket, error) {
	return call[[]lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotTickets})
}

func (c *LotteryClient) AllDraws() ([]lottery.Draw, error) {
	return call[[]lottery.Draw](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotDraws})
}

func (c *LotteryClient) TicketsByOwner(owner string) ([]lottery.Ticket, error) {
	return call[[]lottery.Ticket](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotOwner, Owner: owner})
}

func (c *LotteryClient) DrawResults(drawID uint64) ([]lottery.Result, error) {
	return call[[]lottery.Result](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotResults, ID: drawID})
}

func (c *LotteryClient) ClearTickets() error {
	return exec(&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotClearTickets})
}

func (c *LotteryClient) ClearDraws() error {
	return exec(&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTLotClearDraws})
}
