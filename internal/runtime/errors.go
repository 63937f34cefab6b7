package runtime

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedNode     = errors.New("runtime does not support node")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrOpLimitExceeded     = errors.New("runtime exceeded operation limit")
)

// RuntimeError aborts the current evaluation. Err is one of the sentinel errors above.
type RuntimeError struct {
	Err    error
	Detail string
}

func (e *RuntimeError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v %s", e.Err, e.Detail)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Kind is a short machine-readable name of the failure.
func (e *RuntimeError) Kind() string {
	switch {
	case errors.Is(e.Err, ErrOpLimitExceeded):
		return "op_limit"
	case errors.Is(e.Err, ErrUnsupportedOperator):
		return "unsupported_operator"
	case errors.Is(e.Err, ErrUnsupportedNode):
		return "unsupported_node"
	}
	return "runtime"
}

func opLimitError(limit int) error {
	return &RuntimeError{Err: ErrOpLimitExceeded, Detail: fmt.Sprintf("(%d)", limit)}
}

func operatorError(kind, op string) error {
	return &RuntimeError{Err: ErrUnsupportedOperator, Detail: fmt.Sprintf("%s %q", kind, op)}
}

func nodeError(node any) error {
	return &RuntimeError{Err: ErrUnsupportedNode, Detail: fmt.Sprintf("%T", node)}
}
