// Package views derives the dashboard panels from a session.State. Every panel
// is wrapped in a Result so clients can tell loading, failed and empty apart.
package views

import (
	"github.com/pitwall/pitwall/internal/mockdata"
	"github.com/pitwall/pitwall/internal/session"
)

// Result is one panel of the dashboard.
type Result[T any] struct {
	Status session.Status `json:"status"`
	Error  string         `json:"error,omitempty"`
	Value  T              `json:"value"`
}

// Ready wraps a computed value.
func Ready[T any](v T) Result[T] {
	return Result[T]{Status: session.StatusReady, Value: v}
}

// Failed wraps an error raised while building a panel.
func Failed[T any](err error) Result[T] {
	return Result[T]{Status: session.StatusError, Error: err.Error()}
}

// pending returns the placeholder for a session without data, and false once
// the data is ready.
func pending[T any](st session.State) (Result[T], bool) {
	switch st.Status {
	case session.StatusReady:
		if st.Data != nil {
			return Result[T]{}, false
		}
		return Result[T]{Status: session.StatusNoData}, true
	case session.StatusError:
		return Result[T]{Status: session.StatusError, Error: mockdata.FetchErrorMessage}, true
	default:
		return Result[T]{Status: st.Status}, true
	}
}
