package logserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// HTTPClient implements Client against the log server's REST surface.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("log server base url is required")
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

type createResponse struct {
	ID string `json:"id"`
}

func (c *HTTPClient) CreateRun(ctx context.Context, in CreateRunInput) (string, error) {
	return c.create(ctx, KindRun, map[string]any{
		"project_id":      in.ProjectID,
		"file_name":       in.FileName,
		"checksum":        in.Checksum,
		"user_id":         in.UserID,
		"storage_address": in.StorageAddress,
	})
}

func (c *HTTPClient) CreateProcess(ctx context.Context, in CreateProcessInput) (string, error) {
	return c.create(ctx, KindProcess, map[string]any{
		"name":            in.Name,
		"run_id":          in.RunID,
		"storage_address": in.StorageAddress,
	})
}

func (c *HTTPClient) CreateOperation(ctx context.Context, in CreateOperationInput) (string, error) {
	return c.create(ctx, KindOperation, map[string]any{
		"process_id":      in.ProcessID,
		"name":            in.Name,
		"status":          in.Status,
		"storage_address": in.StorageAddress,
		"is_transport":    in.IsTransport,
		"is_data":         in.IsData,
	})
}

func (c *HTTPClient) CreateEdge(ctx context.Context, in CreateEdgeInput) (string, error) {
	return c.create(ctx, KindEdge, map[string]any{
		"run_id":  in.RunID,
		"from_id": in.FromID,
		"to_id":   in.ToID,
	})
}

func (c *HTTPClient) PatchAttribute(ctx context.Context, kind EntityKind, id, attribute, value string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("entity id is required")
	}
	body, err := json.Marshal(map[string]string{
		"attribute": attribute,
		"new_value": value,
	})
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	path := fmt.Sprintf("/api/%s/%s", kind, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	op := fmt.Sprintf("patch %s.%s", kind, attribute)
	_, err = c.do(req, op, false)
	return err
}

func (c *HTTPClient) create(ctx context.Context, kind EntityKind, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal create: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+string(kind)+"/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return c.do(req, "create "+string(kind), true)
}

// do sends the request and enforces the collaborator contract: non-success
// status or a create response without an id is an UpstreamError.
func (c *HTTPClient) do(req *http.Request, op string, wantID bool) (string, error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &domain.UpstreamError{Op: op, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &domain.UpstreamError{Op: op, Status: resp.StatusCode, Detail: err.Error()}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &domain.UpstreamError{Op: op, Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	if !wantID {
		return "", nil
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &domain.UpstreamError{Op: op, Status: resp.StatusCode, Detail: "decode response: " + err.Error()}
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", &domain.UpstreamError{Op: op, Status: resp.StatusCode, Detail: "response missing id field"}
	}
	return out.ID, nil
}
