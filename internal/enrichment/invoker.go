package enrichment

import (
	"context"
	"encoding/json"
)

// Invoker is the external enrichment operation. It submits a batch of item
// identifiers using one credential and returns whatever subset of results the
// service produced, keyed by item identifier. The returned map may be partial
// or empty; missing items are not an error.
//
// Errors are classified through the package sentinels: implementations wrap
// ErrResourceExhausted, ErrInvalidCredential or ErrTransient so that callers
// can dispatch on errors.Is without knowing the underlying transport.
type Invoker interface {
	Invoke(ctx context.Context, items []string, apiKey string) (map[string]json.RawMessage, error)
}

// InvokerFunc adapts a plain function to the Invoker interface.
type InvokerFunc func(ctx context.Context, items []string, apiKey string) (map[string]json.RawMessage, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, items []string, apiKey string) (map[string]json.RawMessage, error) {
	return f(ctx, items, apiKey)
}
