// Package bundle persists trained indices as versioned JSON envelopes. A
// bundle is written to a temporary file in the target directory and renamed
// into place, so readers never observe a partially written index.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// ErrVersionMismatch is returned when a persisted envelope does not match the
// kind and version the running code expects. Callers must treat it as fatal
// at load time rather than attempt partial interpretation.
var ErrVersionMismatch = errors.New("bundle version mismatch")

// Envelope wraps an engine-specific payload with identification metadata.
type Envelope struct {
	Kind    string          `json:"kind"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// Save marshals payload into an Envelope and atomically writes it to path.
func Save(path, kind string, version int, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bundle: marshal %s payload: %w", kind, err)
	}
	data, err := json.Marshal(Envelope{Kind: kind, Version: version, Payload: raw})
	if err != nil {
		return fmt.Errorf("bundle: marshal envelope: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bundle: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("bundle: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("bundle: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bundle: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bundle: rename into place: %w", err)
	}
	return nil
}

// Load reads the envelope at path, verifies kind and version, and unmarshals
// the payload into out. A kind or version mismatch yields ErrVersionMismatch.
func Load(path, kind string, version int, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("bundle: read %s: %w", path, err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("bundle: decode envelope %s: %w", path, err)
	}
	if env.Kind != kind || env.Version != version {
		return fmt.Errorf("bundle: %s has kind=%q version=%d, want kind=%q version=%d: %w",
			path, env.Kind, env.Version, kind, version, ErrVersionMismatch)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("bundle: decode %s payload: %w", kind, err)
	}
	return nil
}
