// Package blob persists per-workspace binary objects (the uploaded
// archive, the last analysis report) behind a backend-agnostic Store.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Well-known object names.
const (
	ObjectArchive = "archive.zip"
	ObjectReport  = "report.json"
)

var ErrNotFound = errors.New("object not found")

// Store defines operations for persisting workspace objects. GetURL
// returns "" without error when the backend cannot produce a direct
// download URL; callers fall back to serving the bytes themselves.
type Store interface {
	Put(ctx context.Context, workspaceID, name string, content []byte) error
	Get(ctx context.Context, workspaceID, name string) ([]byte, error)
	Delete(ctx context.Context, workspaceID, name string) error
	DeleteAll(ctx context.Context, workspaceID string) error
	List(ctx context.Context, workspaceID string) ([]string, error)
	GetURL(ctx context.Context, workspaceID, name string) (string, error)
}

func validateKey(workspaceID, name string) (string, string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	name = strings.TrimSpace(name)
	if workspaceID == "" {
		return "", "", fmt.Errorf("workspace_id is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("object name is required")
	}
	return workspaceID, name, nil
}

func validateWorkspace(workspaceID string) (string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return "", fmt.Errorf("workspace_id is required")
	}
	return workspaceID, nil
}

func objectKey(workspaceID, name string) string {
	return strings.TrimSpace(workspaceID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}
