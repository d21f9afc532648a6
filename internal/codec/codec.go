// Package codec adapts JSON libraries to the narrow surface the harness
// drives: encode, decode, validate, and whole-file read/write.
package codec

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownBackend is returned by Open for unregistered backend names.
var ErrUnknownBackend = errors.New("unknown JSON backend")

// Backend is one JSON library under test.
type Backend interface {
	Name() string
	Marshal(v any, pretty bool) ([]byte, error)
	Unmarshal(data []byte) (any, error)
	Valid(data []byte) bool
	WriteFile(path string, v any, pretty bool) error
	ReadFile(path string) ([]byte, error)
	Close() error
}

// Limits bounds what a backend will accept.
type Limits struct {
	MaxJSONSize      int64
	MaxDepth         int
	MaxObjectKeys    int
	MaxArrayElements int
}

// DefaultLimits are generous enough for documents of a few hundred thousand values.
func DefaultLimits() Limits {
	return Limits{
		MaxJSONSize:      64 * 1024 * 1024,
		MaxDepth:         64,
		MaxObjectKeys:    100000,
		MaxArrayElements: 1000000,
	}
}

type factory func(Limits) (Backend, error)

var registry = map[string]factory{
	"cybergodev": newCybergo,
	"stdlib":     newStdlib,
}

// Names lists registered backends in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open returns a ready backend. Callers must Close it.
func Open(name string, limits Limits) (Backend, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownBackend, name, Names())
	}
	return f(limits)
}
