package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar counts the items of a long job, such as the transactions
// of a script, as they start and finish.
type ProgressBar struct {
	lock sync.Mutex

	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.lock.Lock()
	b.InProgress += amount
	b.lock.Unlock()
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.lock.Lock()
	b.Finished += amount
	b.lock.Unlock()
}

// MoveInProgressToFinished marks in-progress items as finished.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.lock.Lock()
	b.InProgress -= amount
	b.Finished += amount
	b.lock.Unlock()
}

// MarshalJSON encodes a consistent snapshot of the bar.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	type snapshot ProgressBar

	return json.Marshal((*snapshot)(b))
}
