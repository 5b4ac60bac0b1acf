package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/config"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/monitoring"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

// The backend treats every upload as a JPEG image named upload.jpg regardless
// of the picked file's actual name or type.
const (
	uploadFileName    = "upload.jpg"
	uploadContentType = "image/jpeg"
)

// Client issues HTTP calls to the clinic backend. Every operation enforces the
// configured request timeout and folds all failures into typed *types.AppError
// values; no raw transport or decode error crosses this boundary.
type Client struct {
	baseURL  string
	doctorID string
	timeout  time.Duration
	http     *http.Client
	logger   *logger.Logger
	metrics  *monitoring.MetricsCollector
}

// New creates a backend client. metrics may be nil when diagnostics are off.
func New(cfg config.BackendConfig, log *logger.Logger, metrics *monitoring.MetricsCollector) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	return &Client{
		baseURL:  cfg.BaseURL,
		doctorID: cfg.DoctorID,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
		metrics:  metrics,
	}
}

// ListPatients returns the patient registry, optionally filtered by visit date.
func (c *Client) ListPatients(ctx context.Context, visitDate string) ([]types.Patient, error) {
	path := "/patients"
	if visitDate != "" {
		path += "?visit_date=" + url.QueryEscape(visitDate)
	}

	body, err := c.do(ctx, http.MethodGet, "list_patients", path, nil, "")
	if err != nil {
		return nil, err
	}

	var patients []types.Patient
	if err := json.Unmarshal(body, &patients); err != nil {
		return nil, c.payloadError("list_patients", body, err)
	}
	return patients, nil
}

// CreatePatient registers a new patient.
func (c *Client) CreatePatient(ctx context.Context, name string, age int, gender string) (*types.Patient, error) {
	form, contentType, err := encodeForm([][2]string{
		{"name", name},
		{"age", fmt.Sprintf("%d", age)},
		{"gender", gender},
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to encode form", err)
	}

	body, err := c.do(ctx, http.MethodPost, "create_patient", "/patients/create", form, contentType)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  string         `json:"status"`
		Patient *types.Patient `json:"patient"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.payloadError("create_patient", body, err)
	}
	if resp.Patient == nil {
		return nil, c.payloadError("create_patient", body, errors.New("response has no patient"))
	}
	return resp.Patient, nil
}

// StartVisit opens a new visit for a patient under the configured doctor.
func (c *Client) StartVisit(ctx context.Context, patientID string) (*types.Visit, error) {
	form, contentType, err := encodeForm([][2]string{
		{"patient_id", patientID},
		{"doctor_id", c.doctorID},
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to encode form", err)
	}

	body, err := c.do(ctx, http.MethodPost, "start_visit", "/visits/create", form, contentType)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status string       `json:"status"`
		Visit  *types.Visit `json:"visit"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.payloadError("start_visit", body, err)
	}
	if resp.Visit == nil {
		return nil, c.payloadError("start_visit", body, errors.New("response has no visit"))
	}
	return resp.Visit, nil
}

// GetVisit fetches a single visit with its transcript.
func (c *Client) GetVisit(ctx context.Context, visitID string) (*types.Visit, error) {
	body, err := c.do(ctx, http.MethodGet, "get_visit", "/visits/"+url.PathEscape(visitID), nil, "")
	if err != nil {
		return nil, err
	}

	var visit types.Visit
	if err := json.Unmarshal(body, &visit); err != nil {
		return nil, c.payloadError("get_visit", body, err)
	}
	return &visit, nil
}

// GetVisitHistory fetches all visits for a patient, unordered.
func (c *Client) GetVisitHistory(ctx context.Context, patientID string) ([]types.Visit, error) {
	body, err := c.do(ctx, http.MethodGet, "visit_history", "/visits/history/"+url.PathEscape(patientID), nil, "")
	if err != nil {
		return nil, err
	}

	var visits []types.Visit
	if err := json.Unmarshal(body, &visits); err != nil {
		return nil, c.payloadError("visit_history", body, err)
	}
	return visits, nil
}

// UploadFile sends a picked file for analysis and returns the assistant's
// reply text, or "" when the backend reply carried none.
func (c *Client) UploadFile(ctx context.Context, visitID string, file io.Reader, docType types.DocumentType) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, uploadFileName))
	header.Set("Content-Type", uploadContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to encode upload", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to read upload file", err)
	}
	if err := writer.WriteField("type", string(docType)); err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to encode upload", err)
	}
	if err := writer.Close(); err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to encode upload", err)
	}

	path := "/visits/" + url.PathEscape(visitID) + "/upload"
	body, err := c.do(ctx, http.MethodPost, "upload_file", path, &buf, writer.FormDataContentType())
	if err != nil {
		return "", err
	}

	var resp struct {
		ChatMessage json.RawMessage `json:"chat_message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", c.payloadError("upload_file", body, err)
	}
	return replyText(resp.ChatMessage), nil
}

// Chat sends a consultation query and returns the assistant's reply text, or
// "" when the backend reply carried none.
func (c *Client) Chat(ctx context.Context, visitID, query string) (string, error) {
	form, contentType, err := encodeForm([][2]string{{"query", query}})
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to encode form", err)
	}

	path := "/visits/" + url.PathEscape(visitID) + "/chat"
	body, err := c.do(ctx, http.MethodPost, "chat", path, form, contentType)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", c.payloadError("chat", body, err)
	}
	return replyText(resp.Response), nil
}

// Ping reports whether the backend answers at all. Any HTTP status counts as
// reachable; only transport failures propagate.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError, "failed to build request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.transportError("ping", c.baseURL+"/", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// do issues one request and returns the raw body of a successful response.
// The body is always read as text first so failures can be logged verbatim.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body io.Reader, contentType string) ([]byte, error) {
	fullURL := c.baseURL + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to build request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordBackendRequest(method, endpoint, 0, duration)
		}
		c.logger.APIRequest(method, fullURL, 0, duration.Milliseconds(), map[string]interface{}{"error": err.Error()})
		return nil, c.transportError(endpoint, fullURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(endpoint, fullURL, err)
	}

	if c.metrics != nil {
		c.metrics.RecordBackendRequest(method, endpoint, resp.StatusCode, duration)
	}
	c.logger.APIRequest(method, fullURL, resp.StatusCode, duration.Milliseconds(), nil)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithComponent("api").WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"url":         fullURL,
			"body":        string(raw),
		}).Warn("Backend returned error status")
		return nil, types.NewHTTPError(types.ErrCodeHTTPStatus,
			fmt.Sprintf("backend returned status %d", resp.StatusCode),
			map[string]interface{}{"status_code": resp.StatusCode, "body": string(raw)})
	}

	return raw, nil
}

// transportError classifies a failed round trip as timeout or connectivity.
func (c *Client) transportError(endpoint, fullURL string, err error) *types.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewTimeoutError(types.ErrCodeTimeout,
			fmt.Sprintf("%s timed out after %s", endpoint, c.timeout), err)
	}
	return types.NewConnectivityError(types.ErrCodeConnectionFailed,
		fmt.Sprintf("could not reach backend at %s", fullURL), err)
}

// payloadError wraps a decode failure, logging the offending body.
func (c *Client) payloadError(endpoint string, body []byte, err error) *types.AppError {
	c.logger.WithComponent("api").WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"body":     string(body),
	}).Warn("Backend response was not valid JSON")
	return types.NewPayloadError(types.ErrCodeBadPayload,
		fmt.Sprintf("%s response was not valid JSON", endpoint), err)
}

// replyText normalizes an assistant reply that may be a JSON string, a
// structured object, or absent. Objects are kept as their serialized form so
// the chat layer can re-detect them as reports.
func replyText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

// encodeForm builds a multipart form body from ordered key/value pairs.
func encodeForm(fields [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
