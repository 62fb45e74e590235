// Package dispatch turns chat messages into engine calls. Slash
// commands hit the intent registry directly; free-form text is
// classified by keyword and routed to the recommender, the eligibility
// check, or the FAQ retriever.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Intent is a named chat action.
type Intent struct {
	Name        string
	Description string
	Usage       string
	Handler     HandlerFunc
}

// HandlerFunc is the function signature for intent execution.
type HandlerFunc func(ctx context.Context, args string, hc *HandlerContext) (*Result, error)

// HandlerContext identifies the requesting user and channel.
type HandlerContext struct {
	Platform  string
	ChannelID string
	UserID    string
	UserName  string
}

// Result holds the output of an intent.
type Result struct {
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Registry holds all registered intents.
type Registry struct {
	intents map[string]*Intent
	mu      sync.RWMutex
}

// NewRegistry creates an empty intent registry.
func NewRegistry() *Registry {
	return &Registry{intents: make(map[string]*Intent)}
}

// Register adds an intent to the registry.
func (r *Registry) Register(in *Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[in.Name] = in
}

// Dispatch parses a slash command string and executes the matching intent.
func (r *Registry) Dispatch(ctx context.Context, input string, hc *HandlerContext) (*Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Parse: "/intent_name args..."
	input = strings.TrimPrefix(input, "/")
	parts := strings.SplitN(input, " ", 2)
	name := parts[0]
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	in, ok := r.intents[name]
	if !ok {
		return &Result{
			Content: fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", name),
		}, nil
	}

	return in.Handler(ctx, args, hc)
}

// List returns all registered intents sorted by name.
func (r *Registry) List() []*Intent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Intent, 0, len(r.intents))
	for _, in := range r.intents {
		result = append(result, in)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}
