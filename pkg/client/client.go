// Package client is a thin HTTP client over the control plane's REST API,
// used by the cradled CLI's status and list subcommands.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/cradle/pkg/types"
)

// Client talks to a running cradled server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client targeting baseURL (e.g. "http://127.0.0.1:8090").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WorkspaceList is the decoded response from GET /containers.
type WorkspaceList struct {
	Workspaces []*types.Workspace `json:"workspaces"`
	Count      int                `json:"count"`
}

// List fetches every workspace, optionally filtered by status.
func (c *Client) List(ctx context.Context, status string) (*WorkspaceList, error) {
	url := c.baseURL + "/containers/"
	if status != "" {
		url += "?status=" + status
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach control plane: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("control plane returned %s", resp.Status)
	}

	var out WorkspaceList
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Get fetches a single workspace by id.
func (c *Client) Get(ctx context.Context, id string) (*types.Workspace, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/containers/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach control plane: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, types.Wrap(types.KindNotFound, "workspace not found: "+id, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("control plane returned %s", resp.Status)
	}

	var ws types.Workspace
	if err := json.NewDecoder(resp.Body).Decode(&ws); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &ws, nil
}
