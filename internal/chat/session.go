package chat

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rahulsiiitm/kaizen-eparchi/internal/staging"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/interfaces"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/monitoring"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// Canned transcript strings. The not-understood placeholder stands in for any
// chat reply that lacks a text field; the upload strings mirror the backend's
// outcome when it sends no reply text of its own.
const (
	notUnderstoodReply = "???"
	uploadDoneReply    = "✅ Done."
	uploadFailedReply  = "❌ Failed."
)

// Session holds the conversation transcript for one visit. The transcript is
// rebuilt from scratch on history load and is not the source of truth; the
// server is. Sends are optimistic: the doctor turn is appended before the
// round trip and never rolled back.
type Session struct {
	backend  interfaces.BackendClient
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector
	greeting string

	visitID   string
	patientID string

	mu             sync.Mutex
	messages       []types.Message
	inFlight       int
	loadingHistory bool
}

// NewSession creates a chat session for one visit. metrics may be nil.
func NewSession(backend interfaces.BackendClient, log *logger.Logger, metrics *monitoring.MetricsCollector, greeting, visitID, patientID string) *Session {
	return &Session{
		backend:        backend,
		logger:         log,
		metrics:        metrics,
		greeting:       greeting,
		visitID:        visitID,
		patientID:      patientID,
		loadingHistory: visitID != "" && patientID != "",
	}
}

// Messages returns a snapshot of the transcript in append order.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Sending reports whether at least one send or upload is in flight. Nothing
// prevents overlapping sends; replies append in completion order.
func (s *Session) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// LoadingHistory reports whether the initial history fetch is still pending.
func (s *Session) LoadingHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingHistory
}

// LoadHistory fetches the visit's stored transcript once. Stored messages map
// into the transcript preserving order; an empty or unreachable history seeds
// the canned greeting as the sole assistant turn.
func (s *Session) LoadHistory(ctx context.Context) {
	if s.visitID == "" || s.patientID == "" {
		s.mu.Lock()
		s.loadingHistory = false
		s.mu.Unlock()
		return
	}

	visits, err := s.backend.GetVisitHistory(ctx, s.patientID)
	if err != nil {
		s.logger.WithComponent("chat").WithField("visit_id", s.visitID).WithError(err).Warn("History load failed")
	}

	var current *types.Visit
	for i := range visits {
		if visits[i].ID == s.visitID {
			current = &visits[i]
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadingHistory = false
	if current != nil && len(current.Messages) > 0 {
		for _, msg := range current.Messages {
			if msg.ID == "" {
				msg.ID = uuid.New().String()
			}
			s.messages = append(s.messages, msg)
		}
		return
	}
	s.messages = append(s.messages, types.Message{
		ID:     uuid.New().String(),
		Sender: types.SenderAssistant,
		Text:   s.greeting,
	})
}

// Send appends the doctor's message, issues the chat call, and appends the
// assistant's reply. A failed call or a reply without text appends the
// not-understood placeholder instead.
func (s *Session) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.append(types.Message{
		ID:     uuid.New().String(),
		Sender: types.SenderDoctor,
		Text:   text,
	})

	s.beginRequest()
	reply, err := s.backend.Chat(ctx, s.visitID, text)
	s.endRequest()

	if s.metrics != nil {
		s.metrics.RecordChatTurn(err == nil)
	}
	if err != nil {
		s.logger.WithComponent("chat").WithField("visit_id", s.visitID).WithError(err).Warn("Chat send failed")
	}
	if reply == "" {
		reply = notUnderstoodReply
	}

	s.append(types.Message{
		ID:     uuid.New().String(),
		Sender: types.SenderAssistant,
		Text:   reply,
	})
}

// HandleUpload appends a doctor placeholder naming the upload, sends the file
// with the batch's document type, and appends the assistant's reply.
func (s *Session) HandleUpload(ctx context.Context, file types.StagedFile) {
	docType := file.DocType
	if docType == "" {
		docType = types.DocTypePrescription
	}

	label := "Rx"
	if docType == types.DocTypeXRay {
		label = "X-Ray"
	}
	s.append(types.Message{
		ID:     uuid.New().String(),
		Sender: types.SenderDoctor,
		Text:   "Uploading " + label + "...",
		Files:  []types.FileRef{{Name: file.Name}},
	})

	reply, err := s.uploadFile(ctx, file, docType)

	if s.metrics != nil {
		s.metrics.RecordUpload(string(docType), err == nil)
	}
	switch {
	case err != nil:
		s.logger.WithComponent("chat").WithField("visit_id", s.visitID).WithError(err).Warn("Upload failed")
		reply = uploadFailedReply
	case reply == "":
		reply = uploadDoneReply
	}

	s.append(types.Message{
		ID:     uuid.New().String(),
		Sender: types.SenderAssistant,
		Text:   reply,
	})
}

// DrainStaged is the focus handler for staged uploads: it atomically takes any
// batches queued for this visit and uploads each file sequentially.
func (s *Session) DrainStaged(ctx context.Context, mailbox *staging.Mailbox) {
	batches := mailbox.Take(s.visitID)
	drained := 0
	for _, batch := range batches {
		for _, file := range batch.Files {
			s.HandleUpload(ctx, file)
			drained++
		}
	}
	if drained > 0 && s.metrics != nil {
		s.metrics.RecordDrainedFiles(drained)
	}
}

func (s *Session) uploadFile(ctx context.Context, file types.StagedFile, docType types.DocumentType) (string, error) {
	f, err := os.Open(file.URI)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to open staged file", err)
	}
	defer f.Close()

	s.beginRequest()
	defer s.endRequest()
	return s.backend.UploadFile(ctx, s.visitID, f, docType)
}

func (s *Session) append(msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *Session) beginRequest() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *Session) endRequest() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}
