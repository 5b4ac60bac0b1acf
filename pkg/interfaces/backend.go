package interfaces

import (
	"context"
	"io"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// BackendClient is the contract every consumer of the clinic backend depends
// on. The concrete implementation lives in internal/api; tests substitute
// mocks.
type BackendClient interface {
	// ListPatients returns the patient registry, optionally filtered by a
	// YYYY-MM-DD visit date. The filter is advisory: backends may ignore it.
	ListPatients(ctx context.Context, visitDate string) ([]types.Patient, error)

	// CreatePatient registers a new patient.
	CreatePatient(ctx context.Context, name string, age int, gender string) (*types.Patient, error)

	// StartVisit opens a new visit for a patient under the configured doctor.
	StartVisit(ctx context.Context, patientID string) (*types.Visit, error)

	// GetVisit fetches a single visit with its transcript.
	GetVisit(ctx context.Context, visitID string) (*types.Visit, error)

	// GetVisitHistory fetches all visits for a patient, unordered.
	GetVisitHistory(ctx context.Context, patientID string) ([]types.Visit, error)

	// UploadFile sends a picked file for analysis and returns the assistant's
	// reply text. The reply is empty when the backend sent none.
	UploadFile(ctx context.Context, visitID string, file io.Reader, docType types.DocumentType) (string, error)

	// Chat sends a consultation query and returns the assistant's reply text.
	// The reply is empty when the backend sent none.
	Chat(ctx context.Context, visitID, query string) (string, error)
}
