package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labwise-dev/labwise-go/internal/domain"
	"github.com/labwise-dev/labwise-go/internal/experiment"
)

const maxUploadBytes = 8 << 20

type labAPI struct {
	logger *slog.Logger
	svc    *experiment.Service
}

func newLabAPI(logger *slog.Logger, svc *experiment.Service) *labAPI {
	return &labAPI{logger: logger, svc: svc}
}

func (api *labAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /run_experiment", api.handleRunExperiment)
}

type runExperimentResponse struct {
	RunID          string `json:"run_id"`
	StorageAddress string `json:"storage_address"`
	Status         string `json:"status"`
}

func (api *labAPI) handleRunExperiment(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	projectID := strings.TrimSpace(query.Get("project_id"))
	protocolName := strings.TrimSpace(query.Get("protocol_name"))
	userID := strings.TrimSpace(query.Get("user_id"))
	if projectID == "" {
		api.writeError(w, r, http.StatusBadRequest, "project_id_required")
		return
	}
	if protocolName == "" {
		api.writeError(w, r, http.StatusBadRequest, "protocol_name_required")
		return
	}
	if userID == "" {
		api.writeError(w, r, http.StatusBadRequest, "user_id_required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_multipart_form")
		return
	}
	protocolYAML, err := readYAMLUpload(r, "protocol_yaml")
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_protocol_upload")
		return
	}
	manipulateYAML, err := readYAMLUpload(r, "manipulate_yaml")
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_manipulate_upload")
		return
	}

	result, err := api.svc.RunExperiment(r.Context(), experiment.RunRequest{
		ProjectID:      projectID,
		ProtocolName:   protocolName,
		UserID:         userID,
		ProtocolYAML:   protocolYAML,
		ManipulateYAML: manipulateYAML,
	})
	if err != nil {
		api.writeRunError(w, r, result, err)
		return
	}

	api.writeJSON(w, http.StatusOK, runExperimentResponse{
		RunID:          result.RunID,
		StorageAddress: result.StorageAddress,
		Status:         string(result.Status),
	})
}

// writeRunError maps the error taxonomy onto HTTP statuses. Execution-time
// failures still expose the run id so callers can inspect partial records.
func (api *labAPI) writeRunError(w http.ResponseWriter, r *http.Request, result experiment.RunResult, err error) {
	var (
		noOperator *domain.NoMatchingOperatorError
		cycle      *domain.CycleError
		upstream   *domain.UpstreamError
		storageErr *domain.StorageWriteError
	)

	status := http.StatusInternalServerError
	code := "internal_error"
	switch {
	case errors.Is(err, domain.ErrInvalidProtocol):
		status, code = http.StatusBadRequest, "invalid_protocol"
	case errors.As(err, &noOperator):
		status, code = http.StatusUnprocessableEntity, "no_matching_operator"
	case errors.As(err, &cycle):
		status, code = http.StatusUnprocessableEntity, "cyclic_protocol"
	case errors.As(err, &upstream):
		status, code = http.StatusBadGateway, "log_server_error"
	case errors.As(err, &storageErr):
		status, code = http.StatusBadGateway, "storage_error"
	}

	api.logger.Error("run experiment failed",
		"request_id", r.Header.Get("X-Request-Id"),
		"run_id", result.RunID,
		"error", err,
	)

	body := map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	}
	if result.RunID != "" {
		body["run_id"] = result.RunID
		if result.Status != "" {
			body["status"] = string(result.Status)
		}
	}
	api.writeJSON(w, status, body)
}

// readYAMLUpload pulls one uploaded document, enforcing the yaml extension.
func readYAMLUpload(r *http.Request, field string) ([]byte, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if !validYAMLName(header) {
		return nil, errors.New(field + " must be a YAML file")
	}
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, errors.New(field + " is empty")
	}
	return content, nil
}

func validYAMLName(header *multipart.FileHeader) bool {
	name := strings.ToLower(header.Filename)
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func (api *labAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *labAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}
