package match

import (
	"context"
	"errors"
	"net"
)

// Stage names a step of the match pipeline that talks to an upstream service.
type Stage string

const (
	// StageEmbed is the query embedding call.
	StageEmbed Stage = "embed"
	// StageRetrieve is the vector index search.
	StageRetrieve Stage = "retrieve"
)

// StageError tags an upstream failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return "match: " + string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// ErrorKind classifies err into the short label reported to clients as
// "Internal error: <kind>".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "TimeoutError"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "TimeoutError"
	}
	if errors.Is(err, context.Canceled) {
		return "CanceledError"
	}
	var se *StageError
	if errors.As(err, &se) {
		switch se.Stage {
		case StageEmbed:
			return "EmbeddingError"
		case StageRetrieve:
			return "RetrievalError"
		}
	}
	return "InternalError"
}

// ErrorChain lists the message of err and of every error it wraps, outermost
// first. Joined errors contribute each branch in order.
func ErrorChain(err error) []string {
	var chain []string
	var walk func(error)
	walk = func(e error) {
		for e != nil {
			chain = append(chain, e.Error())
			if multi, ok := e.(interface{ Unwrap() []error }); ok {
				for _, inner := range multi.Unwrap() {
					walk(inner)
				}
				return
			}
			e = errors.Unwrap(e)
		}
	}
	walk(err)
	return chain
}
