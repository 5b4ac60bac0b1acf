package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulsiiitm/kaizen-eparchi/pkg/config"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/logger"
	"github.com/rahulsiiitm/kaizen-eparchi/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(config.BackendConfig{
		BaseURL:        server.URL,
		RequestTimeout: 5,
		DoctorID:       "dr_hackathon",
	}, logger.New("error"), nil)
	return client, server
}

func appErrType(t *testing.T, err error) types.ErrorType {
	t.Helper()
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Type
}

func TestListPatientsSendsDateFilter(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/patients", r.URL.Path)
		w.Write([]byte(`[{"_id":"p1","name":"Asha","age":40}]`))
	})

	patients, err := client.ListPatients(context.Background(), "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, "visit_date=2026-08-01", gotQuery)
	require.Len(t, patients, 1)
	assert.Equal(t, "p1", patients[0].ID)
}

func TestListPatientsHTTPErrorSurfacesTypedError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	patients, err := client.ListPatients(context.Background(), "")
	assert.Nil(t, patients)
	assert.Equal(t, types.ErrorTypeHTTP, appErrType(t, err))
}

func TestListPatientsMalformedBodySurfacesPayloadError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ngrok interstitial</html>"))
	})

	_, err := client.ListPatients(context.Background(), "")
	assert.Equal(t, types.ErrorTypePayload, appErrType(t, err))
}

func TestConnectivityFailureSurfacesTypedError(t *testing.T) {
	client := New(config.BackendConfig{
		BaseURL:        "http://127.0.0.1:1", // nothing listens here
		RequestTimeout: 2,
		DoctorID:       "dr_hackathon",
	}, logger.New("error"), nil)

	_, err := client.ListPatients(context.Background(), "")
	assert.Equal(t, types.ErrorTypeConnectivity, appErrType(t, err))
}

func TestRequestTimeoutSurfacesTimeoutError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	})
	client.timeout = 100 * time.Millisecond
	client.http.Timeout = 100 * time.Millisecond

	_, err := client.ListPatients(context.Background(), "")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, []types.ErrorType{types.ErrorTypeTimeout, types.ErrorTypeConnectivity}, appErr.Type)
}

func TestCreatePatientPostsMultipartFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/patients/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Asha", r.FormValue("name"))
		assert.Equal(t, "42", r.FormValue("age"))
		assert.Equal(t, "F", r.FormValue("gender"))
		w.Write([]byte(`{"status":"ok","patient":{"_id":"p9","name":"Asha","age":42,"gender":"F"}}`))
	})

	patient, err := client.CreatePatient(context.Background(), "Asha", 42, "F")
	require.NoError(t, err)
	assert.Equal(t, "p9", patient.ID)
}

func TestStartVisitSendsDoctorID(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/visits/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "p1", r.FormValue("patient_id"))
		assert.Equal(t, "dr_hackathon", r.FormValue("doctor_id"))
		w.Write([]byte(`{"status":"ok","visit":{"_id":"v1","patient_id":"p1"}}`))
	})

	visit, err := client.StartVisit(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "v1", visit.ID)
}

func TestGetVisitDecodesTranscript(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/visits/v1", r.URL.Path)
		w.Write([]byte(`{"_id":"v1","patient_id":"p1","messages":[{"role":"user","text":"hi"}]}`))
	})

	visit, err := client.GetVisit(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, "v1", visit.ID)
	require.Len(t, visit.Messages, 1)
	assert.Equal(t, types.SenderDoctor, visit.Messages[0].Sender)
}

func TestGetVisitHistory(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/visits/history/p1", r.URL.Path)
		w.Write([]byte(`[{"_id":"v1"},{"_id":"v2"}]`))
	})

	visits, err := client.GetVisitHistory(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, visits, 2)
}

func TestChatDecodesStringReply(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/visits/v1/chat", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "fever since monday", r.FormValue("query"))
		w.Write([]byte(`{"response":"Take paracetamol"}`))
	})

	reply, err := client.Chat(context.Background(), "v1", "fever since monday")
	require.NoError(t, err)
	assert.Equal(t, "Take paracetamol", reply)
}

func TestChatSerializesObjectReply(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":{"summary":"ok"}}`))
	})

	reply, err := client.Chat(context.Background(), "v1", "q")
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, reply)
}

func TestChatMissingReplyFieldYieldsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	reply, err := client.Chat(context.Background(), "v1", "q")
	require.NoError(t, err)
	assert.Equal(t, "", reply)
}

func TestUploadFileWireFormat(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/visits/v1/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "xray", r.FormValue("type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		// Fixed name and content type regardless of the picked file.
		assert.Equal(t, "upload.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))

		w.Write([]byte(`{"chat_message":{"summary":"ok"}}`))
	})

	reply, err := client.UploadFile(context.Background(), "v1", strings.NewReader("jpegbytes"), types.DocTypeXRay)
	require.NoError(t, err)
	assert.JSONEq(t, `{"summary":"ok"}`, reply)
}

func TestPingOnlyFailsOnTransportErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	})
	assert.NoError(t, client.Ping(context.Background()))

	dead := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1", RequestTimeout: 2, DoctorID: "d"}, logger.New("error"), nil)
	err := dead.Ping(context.Background())
	require.Error(t, err)
	var appErr *types.AppError
	assert.True(t, errors.As(err, &appErr))
}
