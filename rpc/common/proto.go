package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/vmihailenco/msgpack/v5"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type" msgpack:"t"`

	// Request fields
	ID        uint64   `json:"id,omitempty" msgpack:"id,omitempty"`       // Used for: ticket and vote ids, draw id of draw operations
	DrawID    uint64   `json:"draw_id,omitempty" msgpack:"did,omitempty"` // Used for: Join
	Owner     string   `json:"owner,omitempty" msgpack:"o,omitempty"`     // Used for: Buy, Owner
	Numbers   []uint32 `json:"numbers,omitempty" msgpack:"n,omitempty"`   // Used for: Buy, Update, Draw
	Candidate string   `json:"candidate,omitempty" msgpack:"c,omitempty"` // Used for: VoteAdd, VoteUpdate, VoteByCandidate
	Voter     string   `json:"voter,omitempty" msgpack:"v,omitempty"`     // Used for: VoteAdd, VoteUpdate, VoteByVoter
	From      uint64   `json:"from,omitempty" msgpack:"f,omitempty"`      // Used for: VoteRange
	To        uint64   `json:"to,omitempty" msgpack:"to,omitempty"`       // Used for: VoteRange

	// Response only fields
	Value []byte         `json:"value,omitempty" msgpack:"val,omitempty"` // Encoded result (see EncodeResult)
	Code  record.RetCode `json:"code,omitempty" msgpack:"code,omitempty"` // Error code, 0 on success
	Err   string         `json:"err,omitempty" msgpack:"err,omitempty"`   // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewResponse creates the response to a request of type msgType.
// The result is encoded into Value, an error is carried with its record.RetCode
// and message so the client can rebuild it (see ToError).
func NewResponse(msgType MessageType, result any, err error) *Message {
	if err != nil {
		msg := &Message{MsgType: msgType, Code: record.CodeOf(err), Err: err.Error()}
		var recErr *record.Error
		if errors.As(err, &recErr) && recErr.Msg != "" {
			msg.Err = recErr.Msg
		}
		return msg
	}

	msg := &Message{MsgType: msgType}
	if result == nil {
		return msg
	}

	value, encErr := EncodeResult(result)
	if encErr != nil {
		return NewErrorResponse(record.RetCInternal, fmt.Sprintf("failed to encode result: %s", encErr))
	}
	msg.Value = value
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(code record.RetCode, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    code,
		Err:     err,
	}
}

// ToError returns the error carried by a response, nil for a successful one.
func (m *Message) ToError() error {
	if m.MsgType != MsgTError && m.Err == "" && m.Code == record.RetCSuccess {
		return nil
	}
	code := m.Code
	if code == record.RetCSuccess {
		code = record.RetCInternal
	}
	if m.Err == code.String() {
		return &record.Error{Code: code}
	}
	return &record.Error{Code: code, Msg: m.Err}
}

// EncodeResult encodes the result of an operation for the Value field.
// Results are always msgpack encoded, independent of the serializer used for the envelope.
func EncodeResult(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// DecodeResult decodes a Value produced by EncodeResult into v.
func DecodeResult(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range msgTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ILottery operations

	MsgTLotBuy          // Buy a ticket
	MsgTLotCheck        // Get a ticket by id
	MsgTLotUpdate       // Replace the numbers of a ticket
	MsgTLotDelete       // Delete a ticket
	MsgTLotTickets      // List all tickets
	MsgTLotOwner        // List the tickets of an owner
	MsgTLotClearTickets // Delete all tickets
	MsgTLotDraw         // Conduct a draw
	MsgTLotGetDraw      // Get a draw by id
	MsgTLotJoin         // Let a ticket participate in a draw
	MsgTLotDraws        // List all draws
	MsgTLotResults      // Matches per ticket of a draw
	MsgTLotClearDraws   // Delete all draws

	// IVoting operations

	MsgTVoteAdd         // Add a vote
	MsgTVoteGet         // Get a vote by id
	MsgTVoteUpdate      // Replace candidate and voter of a vote
	MsgTVoteDelete      // Delete a vote
	MsgTVoteClear       // Delete all votes
	MsgTVoteList        // List all votes
	MsgTVoteTotal       // Number of votes
	MsgTVoteByCandidate // Votes for a candidate
	MsgTVoteByVoter     // Votes of a voter
	MsgTVoteLatest      // Newest vote timestamp
	MsgTVoteCandidates  // Sorted candidate names
	MsgTVoteTally       // Votes per candidate
	MsgTVoteRange       // Votes inside a time range
	MsgTVoteMost        // Most voted candidate
	MsgTVoteLeast       // Least voted candidate
	MsgTVoteSorted      // Votes ordered by timestamp
)

var msgTypeNames = map[MessageType]string{
	MsgTSuccess: "success",
	MsgTError:   "error",

	MsgTLotBuy:          "lottery.buy",
	MsgTLotCheck:        "lottery.check",
	MsgTLotUpdate:       "lottery.update",
	MsgTLotDelete:       "lottery.delete",
	MsgTLotTickets:      "lottery.tickets",
	MsgTLotOwner:        "lottery.owner",
	MsgTLotClearTickets: "lottery.clearTickets",
	MsgTLotDraw:         "lottery.draw",
	MsgTLotGetDraw:      "lottery.getDraw",
	MsgTLotJoin:         "lottery.join",
	MsgTLotDraws:        "lottery.draws",
	MsgTLotResults:      "lottery.results",
	MsgTLotClearDraws:   "lottery.clearDraws",

	MsgTVoteAdd:         "vote.add",
	MsgTVoteGet:         "vote.get",
	MsgTVoteUpdate:      "vote.update",
	MsgTVoteDelete:      "vote.delete",
	MsgTVoteClear:       "vote.clear",
	MsgTVoteList:        "vote.list",
	MsgTVoteTotal:       "vote.total",
	MsgTVoteByCandidate: "vote.byCandidate",
	MsgTVoteByVoter:     "vote.byVoter",
	MsgTVoteLatest:      "vote.latest",
	MsgTVoteCandidates:  "vote.candidates",
	MsgTVoteTally:       "vote.tally",
	MsgTVoteRange:       "vote.range",
	MsgTVoteMost:        "vote.most",
	MsgTVoteLeast:       "vote.least",
	MsgTVoteSorted:      "vote.sorted",
}
