package lottery

import "github.com/ValentinKolb/recstore/lib/record"

// Fixed region handles of the lottery family. They must never change, the stored
// data of earlier runs is found through them.
const (
	TicketCounterRegion record.RegionID = 0
	DrawCounterRegion   record.RegionID = 1
	TicketRegion        record.RegionID = 2
	DrawRegion          record.RegionID = 3
)

// Rules for ticket and winning numbers
const (
	NumbersPerTicket = 6
	MinNumber        = 1
	MaxNumber        = 49
)

// Ticket is a bought lottery ticket.
type Ticket struct {
	ID        uint64   `json:"id" msgpack:"id"`
	Owner     string   `json:"owner" msgpack:"owner"`
	Numbers   []uint32 `json:"numbers" msgpack:"numbers"`
	CreatedAt uint64   `json:"created_at" msgpack:"created_at"`
	UpdatedAt *uint64  `json:"updated_at,omitempty" msgpack:"updated_at"`
}

func (t *Ticket) RecordID() uint64      { return t.ID }
func (t *Ticket) SetRecordID(id uint64) { t.ID = id }

// Draw is a conducted draw. Participants holds the owner of every joined ticket,
// TicketIDs the ticket ids in the same order.
type Draw struct {
	ID             uint64   `json:"id" msgpack:"id"`
	WinningNumbers []uint32 `json:"winning_numbers" msgpack:"winning_numbers"`
	DrawTime       uint64   `json:"draw_time" msgpack:"draw_time"`
	Participants   []string `json:"participants" msgpack:"participants"`
	TicketIDs      []uint64 `json:"ticket_ids" msgpack:"ticket_ids"`
}

func (d *Draw) RecordID() uint64      { return d.ID }
func (d *Draw) SetRecordID(id uint64) { d.ID = id }

// Result is the outcome of one ticket in a draw.
type Result struct {
	TicketID uint64   `json:"ticket_id" msgpack:"ticket_id"`
	Owner    string   `json:"owner" msgpack:"owner"`
	Numbers  []uint32 `json:"numbers" msgpack:"numbers"`
	Matches  uint32   `json:"matches" msgpack:"matches"`
}

// ILottery is implemented by the local Service and by the RPC client.
type ILottery interface {
	// BuyTicket creates a ticket for owner. Fails with RetCInvalidInput for an empty
	// owner or numbers that break the number rules.
	BuyTicket(owner string, numbers []uint32) (Ticket, error)
	// CheckTicket returns the ticket with the given id (RetCNotFound).
	CheckTicket(id uint64) (Ticket, error)
	// UpdateTicket replaces the numbers of a ticket and sets UpdatedAt.
	UpdateTicket(id uint64, numbers []uint32) (Ticket, error)
	// DeleteTicket removes the ticket and returns it.
	DeleteTicket(id uint64) (Ticket, error)
	// ConductDraw creates a draw with the given winning numbers.
	ConductDraw(winning []uint32) (Draw, error)
	// GetDraw returns the draw with the given id (RetCNotFound).
	GetDraw(id uint64) (Draw, error)
	// Participate adds the ticket to the draw. A ticket can join a draw only once (RetCDuplicate).
	// Owner and id of every participant are part of the draw record, which is bounded by
	// record.DefaultMaxPayload. A full draw (a few dozen tickets, fewer with long owner
	// names) rejects further tickets with RetCInvalidInput and stays unchanged.
	Participate(ticketID, drawID uint64) (Draw, error)
	// AllTickets returns all tickets. Fails with RetCNotFound if there are none.
	AllTickets() ([]Ticket, error)
	// AllDraws returns all draws. Fails with RetCNotFound if there are none.
	AllDraws() ([]Draw, error)
	// TicketsByOwner returns the tickets of owner (may be empty).
	TicketsByOwner(owner string) ([]Ticket, error)
	// DrawResults returns the number of matches of every ticket in the draw,
	// best first (ties by ticket id).
	DrawResults(drawID uint64) ([]Result, error)
	// ClearTickets removes all tickets. Ids are not reused.
	ClearTickets() error
	// ClearDraws removes all draws. Ids are not reused.
	ClearDraws() error
}
