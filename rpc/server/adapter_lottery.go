package server

import (
	"fmt"

	"github.com/ValentinKolb/recstore/lib/lottery"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/rpc/common"
)

func NewLotteryServerAdapter(svc lottery.ILottery) IRPCServerAdapter {
	return &lotteryServerAdapterImpl{svc: svc}
}

type lotteryServerAdapterImpl struct {
	svc lottery.ILottery
}

func (adapter *lotteryServerAdapterImpl) Handle(req *common.Message) *common.Message {
	svc := adapter.svc

	// Handle different message types
	switch req.MsgType {
	case common.MsgTLotBuy:
		ticket, err := svc.BuyTicket(req.Owner, req.Numbers)
		return common.NewResponse(req.MsgType, ticket, err)
	case common.MsgTLotCheck:
		ticket, err := svc.CheckTicket(req.ID)
		return common.NewResponse(req.MsgType, ticket, err)
	case common.MsgTLotUpdate:
		ticket, err := svc.UpdateTicket(req.ID, req.Numbers)
		return common.NewResponse(req.MsgType, ticket, err)
	case common.MsgTLotDelete:
		ticket, err := svc.DeleteTicket(req.ID)
		return common.NewResponse(req.MsgType, ticket, err)
	case common.MsgTLotTickets:
		tickets, err := svc.AllTickets()
		return common.NewResponse(req.MsgType, tickets, err)
	case common.MsgTLotOwner:
		tickets, err := svc.TicketsByOwner(req.Owner)
		return common.NewResponse(req.MsgType, tickets, err)
	case common.MsgTLotClearTickets:
		return common.NewResponse(req.MsgType, nil, svc.ClearTickets())
	case common.MsgTLotDraw:
		draw, err := svc.ConductDraw(req.Numbers)
		return common.NewResponse(req.MsgType, draw, err)
	case common.MsgTLotGetDraw:
		draw, err := svc.GetDraw(req.ID)
		return common.NewResponse(req.MsgType, draw, err)
	case common.MsgTLotJoin:
		draw, err := svc.Participate(req.ID, req.DrawID)
		return common.NewResponse(req.MsgType, draw, err)
	case common.MsgTLotDraws:
		draws, err := svc.AllDraws()
		return common.NewResponse(req.MsgType, draws, err)
	case common.MsgTLotResults:
		results, err := svc.DrawResults(req.ID)
		return common.NewResponse(req.MsgType, results, err)
	case common.MsgTLotClearDraws:
		return common.NewResponse(req.MsgType, nil, svc.ClearDraws())
	default:
		return common.NewErrorResponse(record.RetCInvalidInput,
			fmt.Sprintf("lottery service: unsupported message type: %s", req.MsgType))
	}
}
