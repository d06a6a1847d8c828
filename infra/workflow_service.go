package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helixbio/gva-annotation-orchestrator/config"
)

// ErrWorkflowAlreadyStarted is returned when the orchestration engine
// rejects an execution name it has seen before. Coordinators treat this as
// the duplicate-trigger no-op case, which is safe whether the engine rejects
// or silently resumes the earlier execution.
var ErrWorkflowAlreadyStarted = errors.New("workflow execution already started")

// ArchiveExecutionInput is the payload handed to the external archival
// workflow. The engine moves the result object into the cold tier and
// publishes an archive-completed message carrying the archive reference.
type ArchiveExecutionInput struct {
	JobID        string `json:"job_id"`
	ResultBucket string `json:"result_bucket"`
	ResultKey    string `json:"result_key"`
}

type startExecutionRequest struct {
	Name  string                `json:"name"`
	Input ArchiveExecutionInput `json:"input"`
}

type startExecutionResponse struct {
	ExecutionID string `json:"execution_id"`
}

type WorkflowService struct {
	WorkflowServiceURL string
	PrivateKey         string
}

func InitWorkflowService(cfg *config.EnvConfig) *WorkflowService {
	url := cfg.ExternalService.WorkflowServiceURL
	if url == "" {
		panic("Workflow service URL is not configured")
	}

	return &WorkflowService{
		WorkflowServiceURL: url,
		PrivateKey:         cfg.PrivateKey,
	}
}

// StartArchiveExecution starts one archival workflow named by the job id, so
// the engine can deduplicate re-triggers of the same job.
func (s *WorkflowService) StartArchiveExecution(ctx context.Context, name string, input ArchiveExecutionInput) (string, error) {
	url := fmt.Sprintf("%s/api/v1/workflows/archive/executions", s.WorkflowServiceURL)

	body, err := json.Marshal(startExecutionRequest{Name: name, Input: input})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Private-Key", s.PrivateKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", ErrWorkflowAlreadyStarted
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("workflow service returned %d: %s", resp.StatusCode, string(raw))
	}

	var response startExecutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return response.ExecutionID, nil
}
