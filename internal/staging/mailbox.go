package staging

import (
	"sync"

	"github.com/google/uuid"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// Mailbox carries confirmed file batches from the upload picker to a chat
// session. It replaces the ambient single-slot hand-off with a keyed,
// mutex-guarded store: Put appends instead of overwriting, and Take is an
// atomic take-and-clear, so a batch is consumed exactly once.
type Mailbox struct {
	mu      sync.Mutex
	pending map[string][]types.StagedBatch
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{pending: make(map[string][]types.StagedBatch)}
}

// Put queues a batch for the given visit. Batches queue up behind one another
// until the consumer drains them; nothing is ever silently dropped.
func (m *Mailbox) Put(visitID string, batch types.StagedBatch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	batch.VisitID = visitID
	m.pending[visitID] = append(m.pending[visitID], batch)
}

// Take drains and clears every batch queued for the given visit. A repeated
// Take with no intervening Put yields nothing.
func (m *Mailbox) Take(visitID string) []types.StagedBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	batches := m.pending[visitID]
	delete(m.pending, visitID)
	return batches
}

// Pending reports how many files are queued for the given visit.
func (m *Mailbox) Pending(visitID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, batch := range m.pending[visitID] {
		n += len(batch.Files)
	}
	return n
}
