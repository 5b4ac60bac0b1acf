package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/interfaces"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// User-facing messages for a failed registry load.
const (
	MsgCouldNotConnect = "Could not connect to server."
	MsgUnexpected      = "An unexpected error occurred."
)

// PatientStore keeps the patient registry for the list view: current
// collection, loading flag, last error message and the selected date filter.
// Refresh is called whenever the view gains focus or the date changes.
type PatientStore struct {
	backend interfaces.BackendClient
	logger  *logger.Logger

	mu           sync.RWMutex
	patients     []types.Patient
	loading      bool
	errMsg       string
	selectedDate string
}

// NewPatientStore creates a patient store. The store starts in the loading
// state until the first Refresh completes.
func NewPatientStore(backend interfaces.BackendClient, log *logger.Logger) *PatientStore {
	return &PatientStore{
		backend: backend,
		logger:  log,
		loading: true,
	}
}

// Patients returns a snapshot of the current collection.
func (s *PatientStore) Patients() []types.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Patient, len(s.patients))
	copy(out, s.patients)
	return out
}

// Loading reports whether a fetch is in flight.
func (s *PatientStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message for the last failed load, or "".
func (s *PatientStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Search returns the patients whose name contains the query,
// case-insensitive. An empty query returns the full collection.
func (s *PatientStore) Search(query string) []types.Patient {
	return searchByName(s.Patients(), query)
}

// SelectedDate returns the active YYYY-MM-DD filter, or "".
func (s *PatientStore) SelectedDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedDate
}

// SetDate changes the date filter and re-fetches. An empty date clears the
// filter.
func (s *PatientStore) SetDate(ctx context.Context, date string) error {
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return types.NewValidationError(types.ErrCodeInvalidInput,
				fmt.Sprintf("date %q is not in YYYY-MM-DD form", date), nil)
		}
	}
	s.mu.Lock()
	s.selectedDate = date
	s.mu.Unlock()
	s.Refresh(ctx)
	return nil
}

// Refresh re-fetches the registry. Any backend failure yields an empty
// collection plus a fixed could-not-connect message; the loading flag is true
// only for the in-flight window.
func (s *PatientStore) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	date := s.selectedDate
	s.mu.Unlock()

	patients, err := s.backend.ListPatients(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.logger.WithComponent("registry").WithError(err).Warn("Patient list load failed")
		s.patients = nil
		s.errMsg = MsgCouldNotConnect
		return
	}

	// The backend may ignore the visit_date parameter, so the filter is
	// re-applied here unconditionally as a normalization step.
	if date != "" {
		patients = filterByVisitDate(patients, date)
	}
	s.patients = sortByName(patients)
}

// filterByVisitDate keeps patients whose best-available date field starts with
// the requested YYYY-MM-DD string. Patients with no date field are dropped.
func filterByVisitDate(patients []types.Patient, date string) []types.Patient {
	out := make([]types.Patient, 0, len(patients))
	for _, p := range patients {
		visitDate := p.EffectiveVisitDate()
		if visitDate == "" {
			continue
		}
		if strings.HasPrefix(visitDate, date) {
			out = append(out, p)
		}
	}
	return out
}

// searchByName keeps patients whose uppercased name contains the uppercased
// query as a substring. Nameless patients match only the empty query.
func searchByName(patients []types.Patient, query string) []types.Patient {
	if query == "" {
		return patients
	}
	needle := strings.ToUpper(query)
	out := make([]types.Patient, 0, len(patients))
	for _, p := range patients {
		if strings.Contains(strings.ToUpper(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

// sortByName orders patients ascending by uppercased name; patients without a
// name sort as the empty string, i.e. first.
func sortByName(patients []types.Patient) []types.Patient {
	out := make([]types.Patient, len(patients))
	copy(out, patients)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToUpper(out[i].Name) < strings.ToUpper(out[j].Name)
	})
	return out
}
