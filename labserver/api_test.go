package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labwise-dev/labwise-go/internal/execution/drive"
	"github.com/labwise-dev/labwise-go/internal/execution/graph"
	"github.com/labwise-dev/labwise-go/internal/experiment"
	"github.com/labwise-dev/labwise-go/internal/logserver/logservertest"
	"github.com/labwise-dev/labwise-go/internal/operator"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

const testProtocolYAML = `
operations:
  - id: mix
    type: liquid_handler
connections:
  - input: [input, liquid]
    output: [mix, in]
    is_data: false
  - input: [mix, out]
    output: [output, liquid]
    is_data: true
`

const testManipulateYAML = `
- name: liquid_handler
  input:
    - id: in
  output:
    - id: out
`

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := logservertest.NewRecorder()
	store := storage.NewMemoryWriter()
	builder := graph.NewBuilder(rec, operator.FirstSelector())
	driver := drive.New(rec, store, logger, drive.WithSampler(func() time.Duration { return 0 }))
	svc, err := experiment.New(rec, store, logger, builder, driver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mux := http.NewServeMux()
	newLabAPI(logger, svc).register(mux)
	return mux
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".yaml")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func runExperimentRequest(t *testing.T, params url.Values, files map[string]string) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/run_experiment?"+params.Encode(), body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func defaultParams() url.Values {
	return url.Values{
		"project_id":    {"proj-1"},
		"protocol_name": {"mix.yaml"},
		"user_id":       {"user-1"},
	}
}

func defaultFiles() map[string]string {
	return map[string]string{
		"protocol_yaml":   testProtocolYAML,
		"manipulate_yaml": testManipulateYAML,
	}
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestRunExperimentEndpoint(t *testing.T) {
	mux := newTestMux(t)
	resp := httptest.NewRecorder()

	mux.ServeHTTP(resp, runExperimentRequest(t, defaultParams(), defaultFiles()))

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	if body["run_id"] != "runs-1" || body["status"] != "completed" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["storage_address"] != "runs/runs-1/" {
		t.Fatalf("storage address = %v", body["storage_address"])
	}
}

func TestRunExperimentMissingQueryParams(t *testing.T) {
	mux := newTestMux(t)
	for _, missing := range []string{"project_id", "protocol_name", "user_id"} {
		t.Run(missing, func(t *testing.T) {
			params := defaultParams()
			params.Del(missing)
			resp := httptest.NewRecorder()
			mux.ServeHTTP(resp, runExperimentRequest(t, params, defaultFiles()))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", resp.Code)
			}
		})
	}
}

func TestRunExperimentMissingUpload(t *testing.T) {
	mux := newTestMux(t)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, runExperimentRequest(t, defaultParams(), map[string]string{
		"protocol_yaml": testProtocolYAML,
	}))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["error"] != "invalid_manipulate_upload" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRunExperimentInvalidProtocolMapsTo400(t *testing.T) {
	mux := newTestMux(t)
	files := defaultFiles()
	files["protocol_yaml"] = "operations: [unclosed"
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, runExperimentRequest(t, defaultParams(), files))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["error"] != "invalid_protocol" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRunExperimentNoOperatorMapsTo422(t *testing.T) {
	mux := newTestMux(t)
	files := defaultFiles()
	files["protocol_yaml"] = `
operations:
  - id: seq
    type: sequencer
connections: []
`
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, runExperimentRequest(t, defaultParams(), files))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["error"] != "no_matching_operator" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["run_id"] == "" {
		t.Fatal("expected run id in error body")
	}
}

func TestRunExperimentCycleMapsTo422(t *testing.T) {
	mux := newTestMux(t)
	files := defaultFiles()
	files["protocol_yaml"] = `
operations:
  - id: mix
    type: liquid_handler
  - id: measure
    type: plate_reader
connections:
  - input: [mix, out]
    output: [measure, in]
    is_data: true
  - input: [measure, out]
    output: [mix, in]
    is_data: true
`
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, runExperimentRequest(t, defaultParams(), files))
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", resp.Code)
	}
	if body := decodeBody(t, resp); body["error"] != "cyclic_protocol" {
		t.Fatalf("unexpected body %v", body)
	}
}
