package proxy

import "errors"

// Stage names the point at which an invocation failed.
type Stage string

const (
	StageMethod    Stage = "method"
	StageForm      Stage = "form"
	StageTransport Stage = "transport"
	StageDecode    Stage = "decode"
)

// Error is returned from Fetch. Its message is the underlying error text,
// unchanged, so the front-end sees what the transport reported.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf returns the stage of err, or "" when err did not come from Fetch.
func StageOf(err error) Stage {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}

func fail(stage Stage, err error) error {
	return &Error{Stage: stage, Err: err}
}
