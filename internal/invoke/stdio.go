package invoke

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/recipeui/fetchbridge/internal/logger"
)

const maxLineBytes = 64 << 20

// message is one command line from the shell.
type message struct {
	ID   string          `json:"id"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args"`
}

// reply carries either the command result or the error string for a
// message. fetch_wrapper replies also carry the invocation id, failed or not.
type reply struct {
	ID           string `json:"id"`
	InvocationID string `json:"invocation_id,omitempty"`
	OK           any    `json:"ok,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Stdio serves newline-delimited JSON commands.
type Stdio struct {
	handler Handler
	log     logger.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdio builds a stdio server that writes replies to w.
func NewStdio(h Handler, w io.Writer, log logger.Logger) *Stdio {
	return &Stdio{
		handler: h,
		log:     logger.Ensure(log),
		enc:     json.NewEncoder(w),
	}
}

// Serve reads commands from r until EOF or ctx is done. Each command runs in
// its own goroutine; Serve returns once all of them have replied.
func (s *Stdio) Serve(ctx context.Context, r io.Reader) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.write(s.handle(ctx, line))
			}()
		}
	}
}

func (s *Stdio) handle(ctx context.Context, line []byte) reply {
	var msg message
	if err := json.Unmarshal(line, &msg); err != nil {
		s.log.WarnObj("malformed command", "stdio_error", err.Error())
		return reply{Error: fmt.Sprintf("malformed command: %v", err)}
	}

	switch msg.Cmd {
	case CommandFetchWrapper:
		return s.fetchWrapper(ctx, msg)
	case CommandExchange:
		return s.exchange(ctx, msg)
	default:
		return reply{ID: msg.ID, Error: fmt.Sprintf("unknown command %q", msg.Cmd)}
	}
}

func (s *Stdio) fetchWrapper(ctx context.Context, msg message) reply {
	inv, err := decodeInvocation(msg.Args)
	if err != nil {
		return reply{ID: msg.ID, Error: err.Error()}
	}

	invocationID, rec, err := s.handler.FetchWrapper(ctx, inv.URL, inv.Payload)
	if err != nil {
		return reply{ID: msg.ID, InvocationID: invocationID, Error: err.Error()}
	}
	return reply{ID: msg.ID, InvocationID: invocationID, OK: &rec}
}

func (s *Stdio) exchange(ctx context.Context, msg message) reply {
	id, err := decodeLookup(msg.Args)
	if err != nil {
		return reply{ID: msg.ID, Error: err.Error()}
	}

	ex, found, err := s.handler.Exchange(ctx, id)
	switch {
	case err != nil:
		s.log.ErrorObj("exchange lookup failed", "stdio_error", map[string]any{
			"invocation_id": id,
			"error":         err.Error(),
		})
		return reply{ID: msg.ID, Error: err.Error()}
	case !found:
		return reply{ID: msg.ID, Error: ErrExchangeNotFound.Error()}
	}
	return reply{ID: msg.ID, OK: &ex}
}

func (s *Stdio) write(rep reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rep); err != nil {
		s.log.ErrorObj("reply write failed", "stdio_error", map[string]any{
			"id":    rep.ID,
			"error": err.Error(),
		})
	}
}
