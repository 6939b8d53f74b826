// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// Provider answers prompts from a script. When a Rule's marker appears in the
// prompt its response is returned; otherwise Default is used.
type Provider struct {
	Rules   []Rule
	Default string
	Err     error

	mu      sync.Mutex
	prompts []string
}

// Rule maps a prompt marker to a canned response.
type Rule struct {
	Marker   string
	Response string
	Err      error
}

// JSON marshals v for use as a canned response.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func (p *Provider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.Err != nil {
		return "", p.Err
	}
	for _, r := range p.Rules {
		if strings.Contains(prompt, r.Marker) {
			return r.Response, r.Err
		}
	}
	return p.Default, nil
}

func (p *Provider) IsConfigured() bool { return true }

func (p *Provider) Name() string { return "fake" }

// Prompts returns every prompt received so far.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}
