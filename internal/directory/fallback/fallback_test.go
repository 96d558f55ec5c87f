package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// tier counts calls and returns a fixed answer.
type tier struct {
	name  string
	err   error
	calls int
}

func (t *tier) get(context.Context) (string, error) {
	t.calls++
	if t.err != nil {
		return "", t.err
	}
	return t.name, nil
}

func call(ctx context.Context, s *tier) (string, error) { return s.get(ctx) }

func TestExecute(t *testing.T) {
	errLive := errors.New("connection refused")
	errMock := errors.New("fixture missing")

	tests := []struct {
		name         string
		mockMode     bool
		liveErr      error
		mockErr      error
		wantValue    string
		wantSource   Source
		wantErr      error
		wantLive     int
		wantMock     int
		wantFallback bool
	}{
		{
			name:       "mock mode never calls live",
			mockMode:   true,
			wantValue:  "mock",
			wantSource: Mock,
			wantMock:   1,
		},
		{
			name:       "mock mode never calls live even when it would fail",
			mockMode:   true,
			liveErr:    errLive,
			wantValue:  "mock",
			wantSource: Mock,
			wantMock:   1,
		},
		{
			name:       "live success skips mock",
			wantValue:  "live",
			wantSource: Live,
			wantLive:   1,
		},
		{
			name:         "live failure falls back once",
			liveErr:      errLive,
			wantValue:    "mock",
			wantSource:   Mock,
			wantLive:     1,
			wantMock:     1,
			wantFallback: true,
		},
		{
			name:         "both fail propagates the mock error",
			liveErr:      errLive,
			mockErr:      errMock,
			wantSource:   Mock,
			wantErr:      errMock,
			wantLive:     1,
			wantMock:     1,
			wantFallback: true,
		},
		{
			name:       "mock mode failure",
			mockMode:   true,
			mockErr:    errMock,
			wantSource: Mock,
			wantErr:    errMock,
			wantMock:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := &tier{name: "live", err: tt.liveErr}
			mock := &tier{name: "mock", err: tt.mockErr}

			var fellBack bool
			var observed []Source
			p := New(live, mock, tt.mockMode, zaptest.NewLogger(t),
				WithObserver(func(op string, src Source, err error) {
					assert.Equal(t, "get", op)
					assert.Equal(t, tt.wantErr, err)
					observed = append(observed, src)
				}),
				WithFallbackObserver(func(op string, err error) {
					fellBack = true
					assert.Equal(t, errLive, err)
				}),
			)

			res, err := Execute(context.Background(), p, "get", call)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Same(t, tt.wantErr, err)
				assert.Empty(t, res.Value)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantValue, res.Value)
			}
			assert.Equal(t, tt.wantSource, res.Source)
			assert.Equal(t, tt.wantLive, live.calls)
			assert.Equal(t, tt.wantMock, mock.calls)
			assert.Equal(t, tt.wantFallback, fellBack)
			assert.Equal(t, []Source{tt.wantSource}, observed)
		})
	}
}

func TestExecute_LogsPrimaryFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	live := &tier{err: errors.New("dial tcp: i/o timeout")}
	mock := &tier{name: "mock"}
	p := New(live, mock, false, zap.New(core))

	_, err := Execute(context.Background(), p, "company.get", call)
	require.NoError(t, err)

	entries := logs.FilterMessage("Live source failed, falling back to mock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "company.get", fields["operation"])
	assert.Equal(t, "dial tcp: i/o timeout", fields["error"])
}

func TestExecute_NilValueIsNotAFailure(t *testing.T) {
	liveCalls, mockCalls := 0, 0
	type src struct{ live bool }
	p := New(src{live: true}, src{}, false, zap.NewNop())

	res, err := Execute(context.Background(), p, "get", func(_ context.Context, s src) (*string, error) {
		if s.live {
			liveCalls++
		} else {
			mockCalls++
		}
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, res.Value)
	assert.Equal(t, Live, res.Source)
	assert.Equal(t, 1, liveCalls)
	assert.Zero(t, mockCalls)
}

func TestPolicy_Nominal(t *testing.T) {
	assert.Equal(t, Mock, New(1, 2, true, zap.NewNop()).Nominal())
	assert.Equal(t, Live, New(1, 2, false, zap.NewNop()).Nominal())
	assert.True(t, New(1, 2, true, zap.NewNop()).MockMode())
}

func TestExecute_PermanentErrorIsFinal(t *testing.T) {
	rejected := errors.New("cannot approve a completed request")
	core, logs := observer.New(zapcore.WarnLevel)

	var fellBack bool
	var observed []error
	live := &tier{err: Permanent(rejected)}
	mock := &tier{name: "mock"}
	p := New(live, mock, false, zap.New(core),
		WithObserver(func(_ string, src Source, err error) {
			assert.Equal(t, Live, src)
			observed = append(observed, err)
		}),
		WithFallbackObserver(func(string, error) { fellBack = true }),
	)

	res, err := Execute(context.Background(), p, "request.approve", call)
	require.Error(t, err)
	assert.Same(t, rejected, err)
	assert.Equal(t, Live, res.Source)
	assert.Equal(t, 1, live.calls)
	assert.Zero(t, mock.calls)
	assert.False(t, fellBack)
	assert.Equal(t, []error{rejected}, observed)
	assert.Zero(t, logs.Len())
}

func TestExecute_PermanentErrorInMockModeIsUnwrapped(t *testing.T) {
	rejected := errors.New("unknown trainer")
	p := New(&tier{}, &tier{err: Permanent(rejected)}, true, zap.NewNop())

	res, err := Execute(context.Background(), p, "request.assign", call)
	assert.Same(t, rejected, err)
	assert.Equal(t, Mock, res.Source)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}
