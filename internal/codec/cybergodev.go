package codec

import (
	"fmt"

	"github.com/cybergodev/json"
)

const cybergoName = "cybergodev"

// cybergo drives github.com/cybergodev/json through a dedicated Processor so
// its limits never leak into the library's global default processor.
type cybergo struct {
	proc *json.Processor
}

func newCybergo(limits Limits) (Backend, error) {
	cfg := json.DefaultConfig()
	if limits.MaxJSONSize > 0 {
		cfg.MaxJSONSize = limits.MaxJSONSize
		cfg.MaxSecurityValidationSize = limits.MaxJSONSize
	}
	if limits.MaxDepth > 0 {
		cfg.MaxNestingDepthSecurity = limits.MaxDepth
	}
	if limits.MaxObjectKeys > 0 {
		cfg.MaxObjectKeys = limits.MaxObjectKeys
	}
	if limits.MaxArrayElements > 0 {
		cfg.MaxArrayElements = limits.MaxArrayElements
	}
	if err := json.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%s: invalid processor config: %w", cybergoName, err)
	}
	return &cybergo{proc: json.New(cfg)}, nil
}

func (c *cybergo) Name() string { return cybergoName }

func (c *cybergo) Marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return c.proc.MarshalIndent(v, "", "  ")
	}
	return c.proc.Marshal(v)
}

func (c *cybergo) Unmarshal(data []byte) (any, error) {
	var v any
	if err := c.proc.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *cybergo) Valid(data []byte) bool {
	ok, err := c.proc.Valid(string(data))
	return err == nil && ok
}

func (c *cybergo) WriteFile(path string, v any, pretty bool) error {
	return c.proc.SaveToFile(path, v, pretty)
}

func (c *cybergo) ReadFile(path string) ([]byte, error) {
	s, err := c.proc.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (c *cybergo) Close() error {
	return c.proc.Close()
}
