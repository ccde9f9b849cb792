package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/recstore/lib/record"
)

func TestMessageTypeJSON(t *testing.T) {
	for msgType := MsgTSuccess; msgType <= MsgTVoteSorted; msgType++ {
		data, err := json.Marshal(msgType)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", msgType, err)
		}

		var result MessageType
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("failed to unmarshal %s: %v", data, err)
		}
		if result != msgType {
			t.Errorf("expected %s, got %s", msgType, result)
		}
	}

	var result MessageType
	if err := json.Unmarshal([]byte(`"lottery.steal"`), &result); err == nil {
		t.Error("expected error for unknown message type")
	}
	if MsgTUnknown.String() != "unknown" {
		t.Errorf("unexpected name %s", MsgTUnknown)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(MsgTVoteTotal, uint64(42), nil)
	if resp.MsgType != MsgTVoteTotal || resp.Err != "" || resp.Code != record.RetCSuccess {
		t.Fatalf("unexpected response %+v", resp)
	}

	var total uint64
	if err := DecodeResult(resp.Value, &total); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if total != 42 {
		t.Errorf("expected 42, got %d", total)
	}

	resp = NewResponse(MsgTVoteGet, nil, record.Errorf(record.RetCNotFound, "vote 7"))
	if resp.Code != record.RetCNotFound || resp.Err != "vote 7" || resp.Value != nil {
		t.Errorf("unexpected error response %+v", resp)
	}
	err := resp.ToError()
	if !errors.Is(err, record.ErrNotFound) || err.Error() != "NotFound: vote 7" {
		t.Errorf("unexpected rebuilt error %v", err)
	}

	resp = NewResponse(MsgTVoteGet, nil, errors.New("disk on fire"))
	if resp.Code != record.RetCInternal {
		t.Errorf("expected internal code for a plain error, got %v", resp.Code)
	}

	resp = NewResponse(MsgTVoteClear, nil, nil)
	if resp.Value != nil || resp.Err != "" || resp.ToError() != nil {
		t.Errorf("unexpected empty response %+v", resp)
	}

	err = NewErrorResponse(record.RetCSuccess, "service not found").ToError()
	if !errors.Is(err, record.ErrInternal) {
		t.Errorf("expected internal error, got %v", err)
	}
}
