// Package store provides in-memory payroll.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a payroll.Store held in process memory. It is safe for
// concurrent use and loses everything on restart.
type Memory struct {
	mu         sync.RWMutex
	ingestions []payroll.IngestionRecord
	rows       []payroll.TimesheetRow
}

var _ payroll.Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// WithTx executes fn under the write lock.
// Rollback is simulated by restoring a snapshot when fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(payroll.IngestTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *Memory) LoadTimesheet(_ context.Context) ([]payroll.TimesheetRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payroll.TimesheetRow, len(m.rows))
	copy(result, m.rows)
	return result, nil
}

func (m *Memory) ListIngestions(_ context.Context) ([]payroll.IngestionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]payroll.IngestionRecord, len(m.ingestions))
	copy(result, m.ingestions)
	return result, nil
}

func (m *Memory) GetIngestion(_ context.Context, identifier string) (*payroll.IngestionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.ingestions {
		if rec.Identifier == identifier {
			found := rec
			return &found, nil
		}
	}
	return nil, payroll.ErrIngestionNotFound
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ingestions = nil
	m.rows = nil
	return nil
}

type memorySnapshot struct {
	ingestions []payroll.IngestionRecord
	rows       []payroll.TimesheetRow
}

func (m *Memory) snapshot() memorySnapshot {
	return memorySnapshot{
		ingestions: append([]payroll.IngestionRecord{}, m.ingestions...),
		rows:       append([]payroll.TimesheetRow{}, m.rows...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.ingestions = s.ingestions
	m.rows = s.rows
}

type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Identifiers(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(tv.parent.ingestions))
	for _, rec := range tv.parent.ingestions {
		ids = append(ids, rec.Identifier)
	}
	return ids, nil
}

func (tv *txMemoryView) RecordIngestion(_ context.Context, rec payroll.IngestionRecord) error {
	for _, existing := range tv.parent.ingestions {
		if existing.Identifier == rec.Identifier {
			return payroll.ErrDuplicateIngestion
		}
	}
	tv.parent.ingestions = append(tv.parent.ingestions, rec)
	return nil
}

func (tv *txMemoryView) AppendRows(_ context.Context, rows []payroll.TimesheetRow) error {
	tv.parent.rows = append(tv.parent.rows, rows...)
	return nil
}
