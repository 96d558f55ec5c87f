// Package fallback runs a directory operation against the live source and,
// when that fails or mock-mode is on, against the mock source.
//
// Every call starts fresh: there is no retry, no timeout and no memory of
// earlier failures. The answer is tagged with the tier that produced it.
package fallback

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Source names the tier that satisfied (or terminally failed) an operation.
type Source string

const (
	Live Source = "live"
	Mock Source = "mock"
)

// Result is an operation value tagged with its source.
type Result[T any] struct {
	Value  T
	Source Source
}

// Observer is told about every terminal state. err is nil on success.
type Observer func(op string, src Source, err error)

// FallbackObserver is told about every switch from the primary to the
// secondary tier, with the primary's error.
type FallbackObserver func(op string, err error)

type Option func(*options)

type options struct {
	observer         Observer
	fallbackObserver FallbackObserver
}

func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

func WithFallbackObserver(o FallbackObserver) Option {
	return func(opts *options) { opts.fallbackObserver = o }
}

// Policy pairs a primary (live) and a secondary (mock) implementation of
// the same capability S.
type Policy[S any] struct {
	primary   S
	secondary S
	mockMode  bool
	logger    *zap.Logger
	opts      options
}

// New builds a policy. With mockMode set the primary is never invoked.
func New[S any](primary, secondary S, mockMode bool, logger *zap.Logger, opts ...Option) *Policy[S] {
	p := &Policy[S]{
		primary:   primary,
		secondary: secondary,
		mockMode:  mockMode,
		logger:    logger.Named("fallback"),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

// MockMode reports whether the policy skips the primary tier.
func (p *Policy[S]) MockMode() bool { return p.mockMode }

// Nominal is the source a response reports before any tier has answered.
func (p *Policy[S]) Nominal() Source {
	if p.mockMode {
		return Mock
	}
	return Live
}

// Permanent marks err as the tier's answer rather than its failure.
// Execute returns it unwrapped and never tries the secondary for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// Execute runs fn against the primary tier, then against the secondary
// tier if the primary returned an error that is not Permanent. The
// secondary's error is returned as is. Result.Source is set on failure
// too.
func Execute[S, T any](ctx context.Context, p *Policy[S], op string, fn func(context.Context, S) (T, error)) (Result[T], error) {
	if !p.mockMode {
		v, err := fn(ctx, p.primary)
		if err == nil {
			p.done(op, Live, nil)
			return Result[T]{Value: v, Source: Live}, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			p.done(op, Live, perm.err)
			var zero T
			return Result[T]{Value: zero, Source: Live}, perm.err
		}
		p.logger.Warn("Live source failed, falling back to mock",
			zap.String("operation", op),
			zap.Error(err),
		)
		if p.opts.fallbackObserver != nil {
			p.opts.fallbackObserver(op, err)
		}
	}

	v, err := fn(ctx, p.secondary)
	err = unwrapPermanent(err)
	p.done(op, Mock, err)
	if err != nil {
		var zero T
		return Result[T]{Value: zero, Source: Mock}, err
	}
	return Result[T]{Value: v, Source: Mock}, nil
}

func (p *Policy[S]) done(op string, src Source, err error) {
	if p.opts.observer != nil {
		p.opts.observer(op, src, err)
	}
}
