package usecase

import (
	"fmt"
	"sync"

	"AutoTrade/internal/domain/models"
)

// OutcomeQueue holds resolved trade outcomes until the scheduler worker
// applies them. A later outcome for a queued trade replaces the earlier one.
type OutcomeQueue struct {
	mu    sync.Mutex
	items []models.TradeOutcome
	index map[string]int
}

func NewOutcomeQueue() *OutcomeQueue {
	return &OutcomeQueue{index: make(map[string]int)}
}

// Push validates and enqueues o.
func (q *OutcomeQueue) Push(o models.TradeOutcome) error {
	if o.TradeID == "" {
		return fmt.Errorf("%w: trade id required", models.ErrInvalidOrder)
	}
	if !o.Outcome.Resolved() {
		return fmt.Errorf("%w: outcome %q is not a label", models.ErrInvalidOrder, o.Outcome)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if i, ok := q.index[o.TradeID]; ok {
		q.items[i] = o
		return nil
	}
	q.index[o.TradeID] = len(q.items)
	q.items = append(q.items, o)
	return nil
}

// Drain removes and returns everything queued, in arrival order.
func (q *OutcomeQueue) Drain() []models.TradeOutcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	q.index = make(map[string]int)
	return out
}

func (q *OutcomeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
