// Package provider defines the boundary to downstream LLM and data
// services.
//
// A provider client is anything that implements the single-method
// Caller interface; the orchestration layer stays agnostic to provider
// identity.
package provider

import (
	"context"
	"fmt"

	"github.com/cascadehq/cascade/pkg/registry"
)

// Request is one downstream call.
type Request struct {
	// Provider names the configured client that should serve the call.
	Provider string `json:"provider"`

	// Model selects the model or endpoint variant, where applicable.
	Model string `json:"model,omitempty"`

	// Payload is the provider-specific request body.
	Payload map[string]any `json:"payload"`
}

// Response is the outcome of one downstream call.
type Response struct {
	// Payload is the provider-specific response body.
	Payload map[string]any `json:"payload"`

	// Tokens is the token usage reported by the provider, if any.
	Tokens int `json:"tokens,omitempty"`
}

// Caller is the capability interface all provider clients implement.
type Caller interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// CallerFunc adapts a function to the Caller interface.
type CallerFunc func(ctx context.Context, req *Request) (*Response, error)

// Call invokes the function.
func (f CallerFunc) Call(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Registry holds named provider clients.
type Registry struct {
	*registry.BaseRegistry[Caller]
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		BaseRegistry: registry.NewBaseRegistry[Caller](),
	}
}

// Resolve returns the caller registered under name, or an error naming
// the missing provider.
func (r *Registry) Resolve(name string) (Caller, error) {
	caller, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", name)
	}
	return caller, nil
}
