package services

import (
	"context"
	"sync"

	"finflow/internal/core"
	"finflow/internal/notify"
)

var today = core.NewDate(2024, 3, 10)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, eventType, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+id)
	return p.err
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type recordingLedger struct {
	mu      sync.Mutex
	entries []core.Expense
}

func (l *recordingLedger) Recorded(_ context.Context, e core.Expense) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *recordingLedger) Entries() []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]core.Expense(nil), l.entries...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Reminder
	fail map[string]error
}

func (n *recordingNotifier) Notify(_ context.Context, r notify.Reminder) error {
	if err := n.fail[r.Name]; err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, r)
	return nil
}

func (n *recordingNotifier) Names() map[string]notify.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]notify.Reminder, len(n.sent))
	for _, r := range n.sent {
		out[r.Name] = r
	}
	return out
}
