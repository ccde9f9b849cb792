package record

import (
	"fmt"
	"sort"
	"sync"
)

// RegionID is the fixed handle of a storage region.
// Handles are constants of the record families, so they never change between restarts.
type RegionID uint8

// Region is a named key range inside the key-value store.
// All keys of a region start with "r<NNN>/" where NNN is the zero padded handle.
type Region struct {
	ID   RegionID
	Name string
}

// Prefix returns the key prefix of the region.
func (r Region) Prefix() string {
	return fmt.Sprintf("r%03d/", r.ID)
}

// RecordKey returns the key of the record with the given id.
// Ids are zero padded to 20 digits (the width of the largest uint64), so the
// lexical order of the keys equals the numeric order of the ids.
func (r Region) RecordKey(id uint64) string {
	return fmt.Sprintf("r%03d/%020d", r.ID, id)
}

// CounterKey returns the key of the counter cell of the region.
func (r Region) CounterKey() string {
	return r.Prefix() + "counter"
}

// Layout hands out regions. Every handle can be registered only once, so two record
// families can never write into the same key range.
type Layout struct {
	mu      sync.Mutex
	regions map[RegionID]string
}

// NewLayout creates an empty layout.
func NewLayout() *Layout {
	return &Layout{regions: make(map[RegionID]string)}
}

// Register claims the handle id for the region name.
func (l *Layout) Register(id RegionID, name string) (Region, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if owner, ok := l.regions[id]; ok {
		return Region{}, Errorf(RetCInvalidInput, "region %d is already used by %q", id, owner)
	}
	l.regions[id] = name
	return Region{ID: id, Name: name}, nil
}

// Regions returns all registered regions ordered by handle.
func (l *Layout) Regions() []Region {
	l.mu.Lock()
	defer l.mu.Unlock()

	regions := make([]Region, 0, len(l.regions))
	for id, name := range l.regions {
		regions = append(regions, Region{ID: id, Name: name})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	return regions
}
