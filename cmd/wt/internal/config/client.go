package config

import (
	"go.uber.org/zap"

	sandbox "github.com/mehreencs87/sandboxjs"
)

// NewSandbox creates a Sandbox for the active profile
func (c *Config) NewSandbox(logger *zap.Logger) (*sandbox.Sandbox, error) {
	p := c.Active()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return sandbox.New(p.URL, p.Token, p.Container, sandbox.WithLogger(logger))
}
