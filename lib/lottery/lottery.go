package lottery

import (
	"strings"
	"sync"

	"github.com/ValentinKolb/recstore/lib/query"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lottery")

// Service implements ILottery on two record stores (tickets and draws).
type Service struct {
	// mu serializes operations that touch both stores
	mu      sync.Mutex
	tickets *record.Store[Ticket, *Ticket]
	draws   *record.Store[Draw, *Draw]
}

var _ ILottery = (*Service)(nil)

// NewService registers the lottery regions in layout (a new layout if nil) and opens
// the ticket and draw stores on kv.
func NewService(kv store.IStore, layout *record.Layout, opts ...record.Option) (*Service, error) {
	if layout == nil {
		layout = record.NewLayout()
	}

	regions := make(map[record.RegionID]record.Region, 4)
	for id, name := range map[record.RegionID]string{
		TicketCounterRegion: "ticket-counter",
		DrawCounterRegion:   "draw-counter",
		TicketRegion:        "ticket",
		DrawRegion:          "draw",
	} {
		r, err := layout.Register(id, name)
		if err != nil {
			return nil, err
		}
		regions[id] = r
	}

	tickets, err := record.New[Ticket](kv, regions[TicketCounterRegion], regions[TicketRegion], opts...)
	if err != nil {
		return nil, err
	}
	draws, err := record.New[Draw](kv, regions[DrawCounterRegion], regions[DrawRegion], opts...)
	if err != nil {
		return nil, err
	}

	return &Service{tickets: tickets, draws: draws}, nil
}

// ValidateNumbers checks that numbers holds exactly NumbersPerTicket distinct values
// in [MinNumber, MaxNumber].
func ValidateNumbers(numbers []uint32) error {
	if len(numbers) != NumbersPerTicket {
		return record.Errorf(record.RetCInvalidInput, "expected %d numbers, got %d", NumbersPerTicket, len(numbers))
	}
	seen := make(map[uint32]struct{}, len(numbers))
	for _, n := range numbers {
		if n < MinNumber || n > MaxNumber {
			return record.Errorf(record.RetCInvalidInput, "number %d is outside [%d,%d]", n, MinNumber, MaxNumber)
		}
		if _, ok := seen[n]; ok {
			return record.Errorf(record.RetCInvalidInput, "number %d is given twice", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func copyNumbers(numbers []uint32) []uint32 {
	return append([]uint32(nil), numbers...)
}

// --------------------------------------------------------------------------
// Tickets
// --------------------------------------------------------------------------

func (s *Service) BuyTicket(owner string, numbers []uint32) (Ticket, error) {
	if strings.TrimSpace(owner) == "" {
		return Ticket{}, record.Errorf(record.RetCInvalidInput, "owner must not be empty")
	}
	if err := ValidateNumbers(numbers); err != nil {
		return Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, err := s.tickets.Insert(func(_ uint64, now uint64) (Ticket, error) {
		return Ticket{
			Owner:     owner,
			Numbers:   copyNumbers(numbers),
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return Ticket{}, err
	}
	log.Debugf("ticket %d bought by %s", ticket.ID, ticket.Owner)
	return ticket, nil
}

func (s *Service) CheckTicket(id uint64) (Ticket, error) {
	return s.tickets.Get(id)
}

func (s *Service) UpdateTicket(id uint64, numbers []uint32) (Ticket, error) {
	if err := ValidateNumbers(numbers); err != nil {
		return Ticket{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tickets.Update(id, func(t *Ticket, now uint64) error {
		t.Numbers = copyNumbers(numbers)
		t.UpdatedAt = touch(t.CreatedAt, t.UpdatedAt, now)
		return nil
	})
}

// touch returns a modification time that never goes back behind the creation
// time or the previous modification
func touch(created uint64, previous *uint64, now uint64) *uint64 {
	ts := max(now, created)
	if previous != nil {
		ts = max(ts, *previous)
	}
	return &ts
}

func (s *Service) DeleteTicket(id uint64) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tickets.Delete(id)
}

func (s *Service) AllTickets() ([]Ticket, error) {
	tickets, err := s.tickets.List()
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, record.Errorf(record.RetCNotFound, "no lottery tickets found")
	}
	return tickets, nil
}

func (s *Service) TicketsByOwner(owner string) ([]Ticket, error) {
	tickets, err := s.tickets.List()
	if err != nil {
		return nil, err
	}
	return query.Filter(tickets, func(t Ticket) bool { return t.Owner == owner }), nil
}

func (s *Service) ClearTickets() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tickets.Clear()
}

// --------------------------------------------------------------------------
// Draws
// --------------------------------------------------------------------------

func (s *Service) ConductDraw(winning []uint32) (Draw, error) {
	if err := ValidateNumbers(winning); err != nil {
		return Draw{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draw, err := s.draws.Insert(func(_ uint64, now uint64) (Draw, error) {
		return Draw{
			WinningNumbers: copyNumbers(winning),
			DrawTime:       now,
			Participants:   []string{},
			TicketIDs:      []uint64{},
		}, nil
	})
	if err != nil {
		return Draw{}, err
	}
	log.Debugf("draw %d conducted", draw.ID)
	return draw, nil
}

func (s *Service) GetDraw(id uint64) (Draw, error) {
	return s.draws.Get(id)
}

func (s *Service) Participate(ticketID, drawID uint64) (Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, err := s.tickets.Get(ticketID)
	if err != nil {
		return Draw{}, err
	}

	return s.draws.Update(drawID, func(d *Draw, _ uint64) error {
		for _, id := range d.TicketIDs {
			if id == ticketID {
				return record.Errorf(record.RetCDuplicate, "ticket %d already takes part in draw %d", ticketID, drawID)
			}
		}
		d.Participants = append(d.Participants, ticket.Owner)
		d.TicketIDs = append(d.TicketIDs, ticket.ID)
		return nil
	})
}

func (s *Service) AllDraws() ([]Draw, error) {
	draws, err := s.draws.List()
	if err != nil {
		return nil, err
	}
	if len(draws) == 0 {
		return nil, record.Errorf(record.RetCNotFound, "no lottery draws found")
	}
	return draws, nil
}

func (s *Service) DrawResults(drawID uint64) ([]Result, error) {
	draw, err := s.draws.Get(drawID)
	if err != nil {
		return nil, err
	}

	winning := make(map[uint32]struct{}, len(draw.WinningNumbers))
	for _, n := range draw.WinningNumbers {
		winning[n] = struct{}{}
	}

	results := make([]Result, 0, len(draw.TicketIDs))
	for _, id := range draw.TicketIDs {
		ticket, err := s.tickets.Get(id)
		if err != nil {
			if record.CodeOf(err) == record.RetCNotFound {
				continue // deleted after joining
			}
			return nil, err
		}

		var matches uint32
		for _, n := range ticket.Numbers {
			if _, ok := winning[n]; ok {
				matches++
			}
		}
		results = append(results, Result{
			TicketID: ticket.ID,
			Owner:    ticket.Owner,
			Numbers:  ticket.Numbers,
			Matches:  matches,
		})
	}

	results = query.SortBy(results, func(r Result) uint64 { return r.TicketID }, true)
	return query.SortBy(results, func(r Result) uint32 { return r.Matches }, false), nil
}

func (s *Service) ClearDraws() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.draws.Clear()
}
