package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"finflow/internal/core"
)

var _ Store = (*MemoryRepository)(nil)

type memExpense struct {
	core.Expense
	syncStatus string
}

// MemoryRepository is an in-process Store. It is safe for concurrent use;
// every method holds the lock for its whole duration, which makes
// FulfillRecurring atomic.
type MemoryRepository struct {
	mu        sync.RWMutex
	expenses  map[string]memExpense
	recurring map[string]core.RecurringObligation
	bills     map[string]core.BillReminder
	splits    map[string]core.SplitExpense
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		expenses:  map[string]memExpense{},
		recurring: map[string]core.RecurringObligation{},
		bills:     map[string]core.BillReminder{},
		splits:    map[string]core.SplitExpense{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryRepository) Close() error { return nil }

func (m *MemoryRepository) addExpense(e *core.Expense) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = m.now()
	}
	if e.Source == "" {
		e.Source = core.SourceManual
	}
	m.expenses[e.ID] = memExpense{Expense: *e, syncStatus: SyncPending}
}

func (m *MemoryRepository) CreateExpense(_ context.Context, e *core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addExpense(e)
	return nil
}

func (m *MemoryRepository) GetExpense(_ context.Context, id string) (core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.expenses[id]
	if !ok {
		return core.Expense{}, notFound("expense", id)
	}
	return e.Expense, nil
}

func (m *MemoryRepository) ListExpenses(_ context.Context, f ExpenseFilter) ([]core.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range m.expenses {
		if f.Match(e.Expense) {
			out = append(out, e.Expense)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdateExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.expenses[e.ID]
	if !ok {
		return notFound("expense", e.ID)
	}
	cur.Date = e.Date
	cur.Title = e.Title
	cur.Amount = e.Amount
	cur.Category = e.Category
	cur.Type = e.Type
	cur.syncStatus = SyncPending
	m.expenses[e.ID] = cur
	return nil
}

func (m *MemoryRepository) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[id]; !ok {
		return notFound("expense", id)
	}
	delete(m.expenses, id)
	return nil
}

func (m *MemoryRepository) PendingSync(_ context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range m.expenses {
		if e.syncStatus == SyncPending {
			out = append(out, e.Expense)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) setSync(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return notFound("expense", id)
	}
	e.syncStatus = status
	m.expenses[id] = e
	return nil
}

func (m *MemoryRepository) MarkSynced(_ context.Context, id string) error {
	return m.setSync(id, SyncDone)
}

func (m *MemoryRepository) MarkSyncError(_ context.Context, id string) error {
	return m.setSync(id, SyncError)
}

func (m *MemoryRepository) CreateRecurring(_ context.Context, o *core.RecurringObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	m.recurring[o.ID] = *o
	return nil
}

func (m *MemoryRepository) GetRecurring(_ context.Context, id string) (core.RecurringObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.recurring[id]
	if !ok {
		return o, notFound("recurring obligation", id)
	}
	return o, nil
}

func (m *MemoryRepository) ListRecurring(_ context.Context) ([]core.RecurringObligation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RecurringObligation, 0, len(m.recurring))
	for _, o := range m.recurring {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].Description < out[j].Description
	})
	return out, nil
}

func (m *MemoryRepository) UpdateRecurring(_ context.Context, o core.RecurringObligation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recurring[o.ID]; !ok {
		return notFound("recurring obligation", o.ID)
	}
	m.recurring[o.ID] = o
	return nil
}

func (m *MemoryRepository) DeleteRecurring(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recurring[id]; !ok {
		return notFound("recurring obligation", id)
	}
	delete(m.recurring, id)
	return nil
}

func (m *MemoryRepository) FulfillRecurring(_ context.Context, o core.RecurringObligation, e *core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recurring[o.ID]; !ok {
		return notFound("recurring obligation", o.ID)
	}
	m.recurring[o.ID] = o
	m.addExpense(e)
	return nil
}

func (m *MemoryRepository) CreateBill(_ context.Context, b *core.BillReminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	m.bills[b.ID] = *b
	return nil
}

func (m *MemoryRepository) GetBill(_ context.Context, id string) (core.BillReminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bills[id]
	if !ok {
		return b, notFound("bill", id)
	}
	return b, nil
}

func (m *MemoryRepository) ListBills(_ context.Context) ([]core.BillReminder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.BillReminder, 0, len(m.bills))
	for _, b := range m.bills {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryRepository) UpdateBill(_ context.Context, b core.BillReminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[b.ID]; !ok {
		return notFound("bill", b.ID)
	}
	m.bills[b.ID] = b
	return nil
}

func (m *MemoryRepository) DeleteBill(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[id]; !ok {
		return notFound("bill", id)
	}
	delete(m.bills, id)
	return nil
}

func (m *MemoryRepository) CreateSplit(_ context.Context, s *core.SplitExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	m.splits[s.ID] = s.Clone()
	return nil
}

func (m *MemoryRepository) GetSplit(_ context.Context, id string) (core.SplitExpense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.splits[id]
	if !ok {
		return s, notFound("split", id)
	}
	return s.Clone(), nil
}

func (m *MemoryRepository) ListSplits(_ context.Context) ([]core.SplitExpense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SplitExpense, 0, len(m.splits))
	for _, s := range m.splits {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) UpdateSplit(_ context.Context, s core.SplitExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.splits[s.ID]; !ok {
		return notFound("split", s.ID)
	}
	m.splits[s.ID] = s.Clone()
	return nil
}

func (m *MemoryRepository) DeleteSplit(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.splits[id]; !ok {
		return notFound("split", id)
	}
	delete(m.splits, id)
	return nil
}
