package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestWithRetry(t *testing.T) {
	networkErr := mongo.CommandError{Code: 6, Message: "host unreachable", Labels: []string{"NetworkError"}}
	plainErr := errors.New("duplicate participant")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		check     func(t *testing.T, err error)
	}{
		{
			name:      "succeeds first time",
			errs:      []error{nil},
			wantCalls: 1,
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "non retryable error stops immediately",
			errs:      []error{plainErr},
			wantCalls: 1,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, plainErr) },
		},
		{
			name:      "transient error then success",
			errs:      []error{networkErr, nil},
			wantCalls: 2,
			check:     func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:      "transient error exhausts attempts",
			errs:      []error{networkErr, networkErr, networkErr},
			wantCalls: maxRetries,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrMaxRetriesExceeded) },
		},
		{
			name:      "deadline maps to timeout",
			errs:      []error{context.DeadlineExceeded},
			wantCalls: 1,
			check:     func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrOperationTimeout) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := withRetry(context.Background(), zap.NewNop(), "test", func(ctx context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})

			assert.Equal(t, tt.wantCalls, calls)
			tt.check(t, err)
		})
	}
}

func TestWaitForRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := waitForRetry(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnsureTimeout(t *testing.T) {
	ctx, cancel := ensureTimeout(context.Background(), time.Second)
	defer cancel()

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	child, childCancel := ensureTimeout(parent, time.Second)
	defer childCancel()

	parentDeadline, _ := parent.Deadline()
	childDeadline, _ := child.Deadline()
	assert.Equal(t, parentDeadline, childDeadline)
}

func TestUnreadFilter(t *testing.T) {
	f := unreadFilter(primitive.NewObjectID(), "u1")
	assert.Contains(t, f, "conversation_id")
	assert.Contains(t, f, "sender_id")
	assert.Contains(t, f, "read_by")
}
