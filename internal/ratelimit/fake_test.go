package ratelimit_test

import (
	"context"
	"sync"
	"time"
)

type pruneCall struct {
	identifier string
	before     time.Time
}

// memEventLog is an in-memory EventLog with injectable failures.
type memEventLog struct {
	mu     sync.Mutex
	events map[string][]time.Time
	prunes []pruneCall

	countErr  error
	oldestErr error
	recordErr error
	pruneErr  error
}

func newMemEventLog() *memEventLog {
	return &memEventLog{events: make(map[string][]time.Time)}
}

func (m *memEventLog) add(identifier string, at ...time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[identifier] = append(m.events[identifier], at...)
}

func (m *memEventLog) len(identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events[identifier])
}

func (m *memEventLog) Count(_ context.Context, identifier string, since time.Time) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, at := range m.events[identifier] {
		if at.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *memEventLog) Oldest(_ context.Context, identifier string, since time.Time) (time.Time, bool, error) {
	if m.oldestErr != nil {
		return time.Time{}, false, m.oldestErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest time.Time
	found := false
	for _, at := range m.events[identifier] {
		if at.After(since) && (!found || at.Before(oldest)) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func (m *memEventLog) Record(_ context.Context, identifier string, at time.Time) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.add(identifier, at)
	return nil
}

func (m *memEventLog) Prune(_ context.Context, identifier string, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunes = append(m.prunes, pruneCall{identifier: identifier, before: before})
	if m.pruneErr != nil {
		return m.pruneErr
	}
	for id, events := range m.events {
		if identifier != "" && id != identifier {
			continue
		}
		kept := events[:0]
		for _, at := range events {
			if !at.Before(before) {
				kept = append(kept, at)
			}
		}
		m.events[id] = kept
	}
	return nil
}
