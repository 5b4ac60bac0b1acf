package chat

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rahulsiiitm/kaizen-eparchi/internal/staging"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// MockBackend mocks the clinic backend client

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListPatients(ctx context.Context, visitDate string) ([]types.Patient, error) {
	args := m.Called(ctx, visitDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Patient), args.Error(1)
}

func (m *MockBackend) CreatePatient(ctx context.Context, name string, age int, gender string) (*types.Patient, error) {
	args := m.Called(ctx, name, age, gender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *MockBackend) StartVisit(ctx context.Context, patientID string) (*types.Visit, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Visit), args.Error(1)
}

func (m *MockBackend) GetVisit(ctx context.Context, visitID string) (*types.Visit, error) {
	args := m.Called(ctx, visitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Visit), args.Error(1)
}

func (m *MockBackend) GetVisitHistory(ctx context.Context, patientID string) ([]types.Visit, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Visit), args.Error(1)
}

func (m *MockBackend) UploadFile(ctx context.Context, visitID string, file io.Reader, docType types.DocumentType) (string, error) {
	args := m.Called(ctx, visitID, file, docType)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Chat(ctx context.Context, visitID, query string) (string, error) {
	args := m.Called(ctx, visitID, query)
	return args.String(0), args.Error(1)
}

const testGreeting = "Hello! Dr. AI here."

func newTestSession(backend *MockBackend) *Session {
	return NewSession(backend, logger.New("error"), nil, testGreeting, "v1", "p1")
}

func stageTempFile(t *testing.T, name string, docType types.DocumentType) types.StagedFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("jpegbytes"), 0o600))
	return types.StagedFile{URI: path, Name: name, Origin: types.OriginCamera, DocType: docType}
}

func TestLoadHistoryMapsStoredMessages(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetVisitHistory", mock.Anything, "p1").Return([]types.Visit{
		{ID: "other"},
		{ID: "v1", Messages: []types.Message{
			{Sender: types.SenderDoctor, Text: "hello"},
			{Sender: types.SenderAssistant, Text: "hi, how can I help?"},
		}},
	}, nil)

	session := newTestSession(backend)
	require.True(t, session.LoadingHistory())
	session.LoadHistory(context.Background())

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, types.SenderDoctor, messages[0].Sender)
	assert.Equal(t, "hello", messages[0].Text)
	assert.Equal(t, types.SenderAssistant, messages[1].Sender)
	assert.False(t, session.LoadingHistory())
}

func TestLoadHistorySeedsGreetingWhenEmpty(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetVisitHistory", mock.Anything, "p1").Return([]types.Visit{
		{ID: "v1"}, // exists but has no messages
	}, nil)

	session := newTestSession(backend)
	session.LoadHistory(context.Background())

	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, types.SenderAssistant, messages[0].Sender)
	assert.Equal(t, testGreeting, messages[0].Text)
}

func TestLoadHistorySeedsGreetingWhenUnreachable(t *testing.T) {
	backend := new(MockBackend)
	backend.On("GetVisitHistory", mock.Anything, "p1").Return(nil,
		types.NewConnectivityError(types.ErrCodeConnectionFailed, "down", nil))

	session := newTestSession(backend)
	session.LoadHistory(context.Background())

	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, testGreeting, messages[0].Text)
}

func TestLoadHistoryNoopsWithoutVisit(t *testing.T) {
	backend := new(MockBackend)
	session := NewSession(backend, logger.New("error"), nil, testGreeting, "", "")
	assert.False(t, session.LoadingHistory())
	session.LoadHistory(context.Background())
	assert.Empty(t, session.Messages())
	backend.AssertNotCalled(t, "GetVisitHistory", mock.Anything, mock.Anything)
}

func TestSendAppendsDoctorThenAssistant(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, "v1", "fever since monday").Return("Take paracetamol", nil)

	session := newTestSession(backend)
	session.Send(context.Background(), "fever since monday")

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, types.SenderDoctor, messages[0].Sender)
	assert.Equal(t, "fever since monday", messages[0].Text)
	assert.Equal(t, types.SenderAssistant, messages[1].Sender)
	assert.Equal(t, "Take paracetamol", messages[1].Text)
	assert.False(t, session.Sending())
}

func TestSendEmptyInputIsIgnored(t *testing.T) {
	backend := new(MockBackend)
	session := newTestSession(backend)
	session.Send(context.Background(), "   ")
	assert.Empty(t, session.Messages())
	backend.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMissingReplyYieldsPlaceholder(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, "v1", "q").Return("", nil)

	session := newTestSession(backend)
	session.Send(context.Background(), "q")

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, notUnderstoodReply, messages[1].Text)
}

func TestSendFailureKeepsOptimisticDoctorTurn(t *testing.T) {
	backend := new(MockBackend)
	backend.On("Chat", mock.Anything, "v1", "q").Return("",
		types.NewConnectivityError(types.ErrCodeConnectionFailed, "down", nil))

	session := newTestSession(backend)
	session.Send(context.Background(), "q")

	messages := session.Messages()
	require.Len(t, messages, 2)
	// No rollback: the doctor turn stays, the assistant slot gets the placeholder.
	assert.Equal(t, "q", messages[0].Text)
	assert.Equal(t, notUnderstoodReply, messages[1].Text)
}

func TestHandleUploadObjectReplyRendersAsReport(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UploadFile", mock.Anything, "v1", mock.Anything, types.DocTypeXRay).
		Return(`{"summary":"ok"}`, nil)

	session := newTestSession(backend)
	session.HandleUpload(context.Background(), stageTempFile(t, "scan.jpg", types.DocTypeXRay))

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Uploading X-Ray...", messages[0].Text)
	require.Len(t, messages[0].Files, 1)
	assert.Equal(t, "scan.jpg", messages[0].Files[0].Name)

	content := Render(messages[1].Text)
	require.Equal(t, ContentReport, content.Kind)
	assert.Equal(t, "ok", content.Report.Summary)
}

func TestHandleUploadDefaultsToPrescription(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UploadFile", mock.Anything, "v1", mock.Anything, types.DocTypePrescription).
		Return("Looks legible.", nil)

	session := newTestSession(backend)
	file := stageTempFile(t, "rx.jpg", "")
	session.HandleUpload(context.Background(), file)

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "Uploading Rx...", messages[0].Text)
	assert.Equal(t, "Looks legible.", messages[1].Text)
}

func TestHandleUploadEmptyReplyYieldsDone(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UploadFile", mock.Anything, "v1", mock.Anything, types.DocTypeXRay).Return("", nil)

	session := newTestSession(backend)
	session.HandleUpload(context.Background(), stageTempFile(t, "scan.jpg", types.DocTypeXRay))

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, uploadDoneReply, messages[1].Text)
}

func TestHandleUploadFailureYieldsFailed(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UploadFile", mock.Anything, "v1", mock.Anything, types.DocTypeXRay).
		Return("", types.NewConnectivityError(types.ErrCodeConnectionFailed, "down", nil))

	session := newTestSession(backend)
	session.HandleUpload(context.Background(), stageTempFile(t, "scan.jpg", types.DocTypeXRay))

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, uploadFailedReply, messages[1].Text)
}

func TestDrainStagedUploadsSequentiallyThenStops(t *testing.T) {
	backend := new(MockBackend)
	backend.On("UploadFile", mock.Anything, "v1", mock.Anything, types.DocTypeXRay).Return("done", nil)

	mailbox := staging.NewMailbox()
	mailbox.Put("v1", types.StagedBatch{DocType: types.DocTypeXRay, Files: []types.StagedFile{
		stageTempFile(t, "one.jpg", types.DocTypeXRay),
		stageTempFile(t, "two.jpg", types.DocTypeXRay),
	}})

	session := newTestSession(backend)
	session.DrainStaged(context.Background(), mailbox)
	require.Len(t, session.Messages(), 4)

	// Second focus with nothing staged drains nothing.
	session.DrainStaged(context.Background(), mailbox)
	assert.Len(t, session.Messages(), 4)
	backend.AssertNumberOfCalls(t, "UploadFile", 2)
}

func TestDrainStagedIgnoresOtherVisits(t *testing.T) {
	backend := new(MockBackend)
	mailbox := staging.NewMailbox()
	mailbox.Put("someone-else", types.StagedBatch{DocType: types.DocTypeXRay, Files: []types.StagedFile{
		stageTempFile(t, "scan.jpg", types.DocTypeXRay),
	}})

	session := newTestSession(backend)
	session.DrainStaged(context.Background(), mailbox)
	assert.Empty(t, session.Messages())
	assert.Equal(t, 1, mailbox.Pending("someone-else"))
}
