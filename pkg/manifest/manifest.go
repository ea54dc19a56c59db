package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Header represents a generated header entry in the manifest.
type Header struct {
	Input         string `yaml:"input" json:"input"`
	Output        string `yaml:"output" json:"output"`
	InputDigest   string `yaml:"input_digest" json:"input_digest"`
	OutputDigest  string `yaml:"output_digest" json:"output_digest"`
	OptionsDigest string `yaml:"options_digest,omitempty" json:"options_digest,omitempty"` // generation options and backend
	Roots         int    `yaml:"roots" json:"roots"`
	Types         int    `yaml:"types" json:"types"`
}

// Manifest tracks the headers generated from .in files.
type Manifest struct {
	Headers []Header `yaml:"headers" json:"headers"`
}

// Load reads a manifest from the provided path. If the file does not exist,
// an empty manifest is returned.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// Save writes the manifest to the provided path, creating parent directories as needed.
func (m *Manifest) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}

	sort.Slice(m.Headers, func(i, j int) bool { return m.Headers[i].Input < m.Headers[j].Input })
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// AddHeader records h, replacing an existing entry for the same input.
func (m *Manifest) AddHeader(h Header) {
	h.Input = filepath.Clean(h.Input)
	h.Output = filepath.Clean(h.Output)
	for i := range m.Headers {
		if m.Headers[i].Input == h.Input {
			m.Headers[i] = h
			return
		}
	}

	m.Headers = append(m.Headers, h)
}

// Header returns the entry recorded for input, if present.
func (m *Manifest) Header(input string) (Header, bool) {
	input = filepath.Clean(input)
	for _, h := range m.Headers {
		if h.Input == input {
			return h, true
		}
	}
	return Header{}, false
}

// IsCurrent reports whether output was generated from the present content
// of input with the same options, and has not been modified since.
func (m *Manifest) IsCurrent(input, output, optionsDigest string) (bool, error) {
	h, ok := m.Header(input)
	if !ok || h.Output != filepath.Clean(output) || h.OptionsDigest != optionsDigest {
		return false, nil
	}

	in, err := FileDigest(input)
	if err != nil {
		return false, err
	}
	out, err := FileDigest(output)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return in == h.InputDigest && out == h.OutputDigest, nil
}

// FileDigest returns the hex sha256 of a file's content.
func FileDigest(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return Digest(data), nil
}

func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
