package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chaintask-client/pkg/task"
)

// ListTaskMetadata fetches the metadata collection, optionally narrowed
// server-side.
func (c *Client) ListTaskMetadata(ctx context.Context, q task.MetadataQuery) ([]task.Metadata, error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	if q.Priority != "" {
		query.Set("priority", string(q.Priority))
	}
	if q.Tag != "" {
		query.Set("tag", q.Tag)
	}
	if q.Category != "" {
		query.Set("category", q.Category)
	}

	var meta []task.Metadata
	if err := c.do(ctx, http.MethodGet, "/tasks", query, nil, &meta, true); err != nil {
		return nil, err
	}
	return meta, nil
}

// CreateTaskMetadata stores a fresh metadata record for a newly created
// on-chain task.
func (c *Client) CreateTaskMetadata(ctx context.Context, draft task.MetadataDraft) error {
	return c.do(ctx, http.MethodPost, "/tasks", nil, draft, nil, true)
}

// PatchTaskMetadata partially updates the metadata record for a task id.
func (c *Client) PatchTaskMetadata(ctx context.Context, id int64, patch task.MetadataPatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/metadata", id), nil, patch, nil, true)
}
