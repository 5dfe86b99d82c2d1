package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternalDb        = errors.New("internal database error")
	ErrInternalCache     = errors.New("internal cache error")
	ErrCorruptCacheEntry = fmt.Errorf("%w: corrupt cache entry", ErrInternalCache)
)

// ErrorKind classifies failures crossing the service boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindRepository
	KindCache
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindRepository:
		return "repository failure"
	case KindCache:
		return "cache failure"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrInvalidInput
	case KindNotFound:
		return ErrNotFound
	case KindRepository:
		return ErrInternalDb
	case KindCache:
		return ErrInternalCache
	default:
		return nil
	}
}

// Error is the tagged result returned by the service layer. Callers branch on
// Kind; Cause holds the underlying infrastructure error, if any.
type Error struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func NewValidationError(op string, cause error) *Error {
	return &Error{Kind: KindValidation, Op: op, Cause: cause}
}

func NewNotFoundError(op string) *Error {
	return &Error{Kind: KindNotFound, Op: op}
}

func NewRepositoryError(op string, cause error) *Error {
	return &Error{Kind: KindRepository, Op: op, Cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrNotFound) and friends work on the kind alone.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTimeout reports whether err was caused by an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// ErrorContainer collects the non-critical errors of one request so the
// request logger can report them after the handler returns.
type ErrorContainer struct {
	mu    sync.Mutex
	inner []error
}

func NewErrorContainer(e ...error) *ErrorContainer {
	ec := &ErrorContainer{inner: make([]error, 0, len(e))}
	ec.Add(e...)
	return ec
}

func (c *ErrorContainer) Add(e ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, err := range e {
		if err != nil {
			c.inner = append(c.inner, err)
		}
	}
}

func (c *ErrorContainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inner)
}

func (c *ErrorContainer) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for _, err := range c.inner {
		b.WriteString(err.Error())
		b.WriteString(";\n")
	}
	return b.String()
}

func (c *ErrorContainer) Unwrap() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.inner))
	copy(out, c.inner)
	return out
}

type errorContainerKey struct{}

func WithErrorContainer(ctx context.Context, c *ErrorContainer) context.Context {
	return context.WithValue(ctx, errorContainerKey{}, c)
}

// ErrorContainerFromContext returns nil when the request carries no container.
func ErrorContainerFromContext(ctx context.Context) *ErrorContainer {
	c, _ := ctx.Value(errorContainerKey{}).(*ErrorContainer)
	return c
}

type loggable struct{ err error }

// Loggable renders err and its unwrap chain as a structured slog group.
// Usage: slog.Any("err", domain.Loggable(err))
func Loggable(err error) slog.LogValuer { return loggable{err: err} }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}
	chain := make([]string, 0, 4)
	for e := l.err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return slog.GroupValue(
		slog.String("message", l.err.Error()),
		slog.Any("chain", chain),
	)
}
