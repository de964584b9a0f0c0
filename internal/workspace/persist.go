package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	workspacePrefix = "WS_"
	requestPrefix   = "RQ_"
)

func (c *Context) workspacePath(id uuid.UUID) string {
	return filepath.Join(c.dir, workspacePrefix+id.String()+".json")
}

func (c *Context) requestPath(id uuid.UUID) string {
	return filepath.Join(c.dir, requestPrefix+id.String()+".json")
}

// SaveWorkspace writes the active workspace to WS_<id>.json. The encoding is
// deterministic, so saving an unchanged workspace twice produces
// byte-identical files.
func (c *Context) SaveWorkspace() error {
	c.mu.Lock()
	active := c.workspaces[c.active]
	c.mu.Unlock()
	if active == nil {
		return fmt.Errorf("no active workspace")
	}

	data, err := json.MarshalIndent(active, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workspace %s: %w", active.ID, err)
	}

	if err := os.WriteFile(c.workspacePath(active.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write workspace file: %w", err)
	}

	c.logger.Debug("workspace saved", "id", active.ID)
	return nil
}

// SaveRequests writes each processed request of the active workspace to
// RQ_<id>.json, skipping files that already exist.
func (c *Context) SaveRequests() error {
	c.mu.Lock()
	requests := c.requestsLocked()
	c.mu.Unlock()

	for _, req := range requests {
		if !req.IsProcessed() {
			continue
		}

		path := c.requestPath(req.ID)
		if _, err := os.Stat(path); err == nil {
			continue
		}

		data, err := json.MarshalIndent(req, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode request %s: %w", req.ID, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write request file: %w", err)
		}
		c.logger.Debug("request saved", "id", req.ID)
	}
	return nil
}

// LoadWorkspaces scans the working directory for WS_*.json and RQ_*.json
// files and rebuilds the in-memory maps. Requests come back with raw bytes
// only; their feature indexes are rebuilt lazily by ProcessTick. A workspace
// referencing a request file that is missing gets flagged dirty for
// re-fetch. Unreadable files are logged and skipped.
func (c *Context) LoadWorkspaces() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to scan workspace directory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(c.dir, name)
		switch {
		case strings.HasPrefix(name, requestPrefix):
			data, err := os.ReadFile(path)
			if err != nil {
				c.logger.Error("failed to read request file", "path", path, "error", err)
				continue
			}
			var req Request
			if err := json.Unmarshal(data, &req); err != nil {
				c.logger.Error("failed to decode request file", "path", path, "error", err)
				continue
			}
			c.loaded[req.ID] = &req

		case strings.HasPrefix(name, workspacePrefix):
			data, err := os.ReadFile(path)
			if err != nil {
				c.logger.Error("failed to read workspace file", "path", path, "error", err)
				continue
			}
			var d Data
			if err := json.Unmarshal(data, &d); err != nil {
				c.logger.Error("failed to decode workspace file", "path", path, "error", err)
				continue
			}
			c.workspaces[d.ID] = &d
		}
	}

	// Every referenced request must be loaded, or the workspace is dirty.
	for _, d := range c.workspaces {
		for id := range d.Requests {
			if _, ok := c.loaded[id]; !ok {
				d.Dirty = true
				c.logger.Warn("workspace references missing request",
					"workspace", d.ID, "request", id)
			}
		}
	}

	if c.active == uuid.Nil && len(c.workspaces) > 0 {
		var first *Data
		for _, d := range c.workspaces {
			if first == nil || d.Name < first.Name {
				first = d
			}
		}
		c.active = first.ID
	}

	c.logger.Info("workspaces loaded",
		"workspaces", len(c.workspaces), "requests", len(c.loaded))
	return nil
}
