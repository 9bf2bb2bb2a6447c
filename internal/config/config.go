// Package config loads a JSON file configuring the tracebox CLI, the same
// encoding/json-plus-path-guard shape as the teacher's
// examples/common.ClusterConfig, adapted from a cluster-of-parties topology
// to a single node's local state directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File is the on-disk shape of a tracebox CLI config file.
type File struct {
	// StateDir overrides dht.DefaultStateDir when non-empty.
	StateDir string `json:"state_dir"`
}

// Load reads and parses a tracebox config file, rejecting any path that
// escapes the working directory.
func Load(path string) (*File, error) {
	absPath, err := SecurePath(path)
	if err != nil {
		return nil, fmt.Errorf("secure path: %w", err)
	}
	data, err := os.ReadFile(absPath) // #nosec G304 -- absPath validated by SecurePath
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return &f, nil
}

// SecurePath validates that path, once resolved, does not escape the
// current working directory, guarding against path traversal in a
// user-supplied config path.
func SecurePath(path string) (string, error) {
	clean := filepath.Clean(path)
	absPath, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	base, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	rel, err := filepath.Rel(base, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", errors.New("path escapes working directory")
	}
	return absPath, nil
}
