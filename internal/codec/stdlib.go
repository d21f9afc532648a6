package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stdlibName = "stdlib"

// stdlib is the encoding/json baseline that other backends are compared with.
type stdlib struct {
	limits Limits
}

func newStdlib(limits Limits) (Backend, error) {
	return &stdlib{limits: limits}, nil
}

func (s *stdlib) Name() string { return stdlibName }

func (s *stdlib) Marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (s *stdlib) Unmarshal(data []byte) (any, error) {
	if err := s.checkSize(int64(len(data))); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("%s: trailing data after JSON value", stdlibName)
	}
	return v, nil
}

func (s *stdlib) Valid(data []byte) bool {
	return json.Valid(data)
}

func (s *stdlib) WriteFile(path string, v any, pretty bool) error {
	data, err := s.Marshal(v, pretty)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

func (s *stdlib) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(info.Size()); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *stdlib) Close() error { return nil }

func (s *stdlib) checkSize(n int64) error {
	if s.limits.MaxJSONSize > 0 && n > s.limits.MaxJSONSize {
		return fmt.Errorf("%s: document of %d bytes exceeds limit %d", stdlibName, n, s.limits.MaxJSONSize)
	}
	return nil
}
