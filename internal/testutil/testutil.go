// Package testutil provides fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/verte-zerg/typegate/internal/model"
)

// MemoryStore keeps records in memory. Load hands out copies so callers
// mutating a snapshot do not touch stored state until Save.
type MemoryStore struct {
	mu      sync.Mutex
	recs    model.Records
	SaveErr error
	LoadErr error
	Saves   int
}

// NewMemoryStore returns a store seeded with recs.
func NewMemoryStore(recs model.Records) *MemoryStore {
	return &MemoryStore{recs: clone(recs)}
}

// Load implements the record store contract.
func (m *MemoryStore) Load(_ context.Context) (model.Records, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return model.Records{}, m.LoadErr
	}
	return clone(m.recs), nil
}

// Save implements the record store contract.
func (m *MemoryStore) Save(_ context.Context, recs model.Records) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.recs = clone(recs)
	m.Saves++
	return nil
}

// Snapshot returns a copy of the stored records.
func (m *MemoryStore) Snapshot() model.Records {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.recs)
}

func clone(recs model.Records) model.Records {
	out := model.Records{LastUpdated: recs.LastUpdated}
	out.Codes = append([]model.LicenseCode{}, recs.Codes...)
	out.Authorizations = append([]model.ClientAuthorization{}, recs.Authorizations...)
	return out
}
