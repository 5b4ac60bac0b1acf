package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/interfaces"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// VisitStore keeps one patient's visit history for the detail view, sorted
// newest-first. Refresh is called on view focus and when the patient changes.
type VisitStore struct {
	backend interfaces.BackendClient
	logger  *logger.Logger

	mu        sync.RWMutex
	patientID string
	history   []types.Visit
	loading   bool
}

// NewVisitStore creates a visit store for the given patient id (may be empty;
// Refresh no-ops until a patient is set).
func NewVisitStore(backend interfaces.BackendClient, log *logger.Logger, patientID string) *VisitStore {
	return &VisitStore{
		backend:   backend,
		logger:    log,
		patientID: patientID,
		loading:   true,
	}
}

// History returns a snapshot of the visit list, newest first.
func (s *VisitStore) History() []types.Visit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Visit, len(s.history))
	copy(out, s.history)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *VisitStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetPatient re-arms the store for a different patient and re-fetches.
func (s *VisitStore) SetPatient(ctx context.Context, patientID string) {
	s.mu.Lock()
	s.patientID = patientID
	s.history = nil
	s.mu.Unlock()
	s.Refresh(ctx)
}

// Refresh re-fetches the history. A backend failure degrades to the empty
// list; the history contract never surfaces an error message.
func (s *VisitStore) Refresh(ctx context.Context) {
	s.mu.RLock()
	patientID := s.patientID
	s.mu.RUnlock()
	if patientID == "" {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	visits, err := s.backend.GetVisitHistory(ctx, patientID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.logger.WithComponent("registry").WithField("patient_id", patientID).WithError(err).Warn("Visit history load failed")
		s.history = nil
		return
	}
	s.history = sortNewestFirst(visits)
}

// sortNewestFirst orders visits descending by their best-available timestamp.
// Visits with no parseable timestamp resolve to the zero time and sort last.
func sortNewestFirst(visits []types.Visit) []types.Visit {
	out := make([]types.Visit, len(visits))
	copy(out, visits)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveTime().After(out[j].EffectiveTime())
	})
	return out
}
