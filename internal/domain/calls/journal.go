// Package calls contains the demonstration services whose method bodies
// record the transaction state they observe.
package calls

import (
	"context"
	"sync"

	"txproxy/internal/core/tx"
	"txproxy/pkg/logger"
)

// Observation is what one method body saw when it ran.
type Observation struct {
	Method   string `json:"method"`
	TxActive bool   `json:"tx_active"`
	ReadOnly bool   `json:"tx_read_only"`
	Depth    int    `json:"tx_depth"`
	TxName   string `json:"tx_name,omitempty"`
}

// Journal collects observations in call order.
type Journal struct {
	mu      sync.Mutex
	entries []Observation
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record logs the transaction state on ctx and appends it.
func (j *Journal) Record(ctx context.Context, method string) Observation {
	snap := tx.Current(ctx)
	obs := Observation{
		Method:   method,
		TxActive: snap.Active,
		ReadOnly: snap.ReadOnly,
		Depth:    snap.Depth,
		TxName:   snap.Name,
	}

	logger.Info(ctx, "tx info",
		"method", method,
		"tx_active", obs.TxActive,
		"tx_read_only", obs.ReadOnly,
	)

	j.mu.Lock()
	j.entries = append(j.entries, obs)
	j.mu.Unlock()
	return obs
}

// Entries returns a copy of the recorded observations.
func (j *Journal) Entries() []Observation {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Observation(nil), j.entries...)
}

// Last returns the most recent observation for method.
func (j *Journal) Last(method string) (Observation, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].Method == method {
			return j.entries[i], true
		}
	}
	return Observation{}, false
}
