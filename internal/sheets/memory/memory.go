package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"finflow/internal/core"
	"finflow/internal/sheets"
)

var _ sheets.Mirror = (*Store)(nil)

// Store is an in-process mirror used by the memory backend and in tests.
type Store struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Store {
	return &Store{}
}

// Append stores the row of e, replacing any row with the same id, and
// returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.Expense) (string, error) {
	if e.ID == "" {
		return "", errors.New("ledger entry has no id")
	}
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(e.ID); i >= 0 {
		s.rows[i] = sheets.Row(e)
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.rows = append(s.rows, sheets.Row(e))
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows in sheet order.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.rows {
		if r[0] == id {
			return i
		}
	}
	return -1
}
