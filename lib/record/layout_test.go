package record

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionKeys(t *testing.T) {
	r := Region{ID: 2, Name: "ticket"}

	assert.Equal(t, "r002/", r.Prefix())
	assert.Equal(t, "r002/00000000000000000007", r.RecordKey(7))
	assert.Equal(t, "r002/counter", r.CounterKey())

	// fixed width keeps numeric order
	assert.Less(t, r.RecordKey(9), r.RecordKey(10))
	assert.Less(t, r.RecordKey(10), r.CounterKey())
}

func TestLayoutRejectsOverlap(t *testing.T) {
	l := NewLayout()

	_, err := l.Register(0, "ticket-counter")
	require.NoError(t, err)
	_, err = l.Register(2, "ticket")
	require.NoError(t, err)

	_, err = l.Register(2, "draw")
	assert.True(t, errors.Is(err, ErrInvalidInput))

	regions := l.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, RegionID(0), regions[0].ID)
	assert.Equal(t, "ticket", regions[1].Name)
}

func TestErrorCodes(t *testing.T) {
	err := Errorf(RetCNotFound, "ticket %d not found", 3)

	assert.Equal(t, "NotFound: ticket 3 not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNoData)
	assert.Equal(t, RetCNotFound, CodeOf(err))
	assert.Equal(t, RetCInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, RetCSuccess, CodeOf(nil))
	assert.Equal(t, "NoData", ErrNoData.Error())
}
