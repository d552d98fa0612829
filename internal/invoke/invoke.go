package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/recipeui/fetchbridge/internal/domain"
)

// Package invoke exposes the bridge commands to the front-end over stdio
// (desktop shell) or HTTP (web build).

// Command names the front-end invokes.
const (
	CommandFetchWrapper = "fetch_wrapper"
	CommandExchange     = "exchange"
)

// InvocationHeader carries the journal id of an invocation on HTTP responses.
const InvocationHeader = "X-Invocation-Id"

// ErrExchangeNotFound is reported for unknown or expired invocation ids.
var ErrExchangeNotFound = errors.New("exchange not found")

// Handler runs commands. FetchWrapper returns the invocation id the exchange
// was journaled under; Exchange looks it up again.
type Handler interface {
	FetchWrapper(ctx context.Context, url string, payload domain.RequestPayload) (string, domain.ResponseRecord, error)
	Exchange(ctx context.Context, id string) (domain.Exchange, bool, error)
}

// lookup is the argument object of the exchange command.
type lookup struct {
	ID string `json:"id"`
}

// decodeInvocation parses fetch_wrapper arguments.
func decodeInvocation(raw json.RawMessage) (domain.Invocation, error) {
	var inv domain.Invocation
	if len(raw) == 0 {
		return inv, fmt.Errorf("missing args")
	}
	if err := json.Unmarshal(raw, &inv); err != nil {
		return inv, fmt.Errorf("invalid args: %w", err)
	}
	return inv, nil
}

// decodeLookup parses exchange arguments.
func decodeLookup(raw json.RawMessage) (string, error) {
	var l lookup
	if len(raw) == 0 {
		return "", fmt.Errorf("missing args")
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		return "", fmt.Errorf("invalid args: %w", err)
	}
	if l.ID = strings.TrimSpace(l.ID); l.ID == "" {
		return "", fmt.Errorf("missing exchange id")
	}
	return l.ID, nil
}
