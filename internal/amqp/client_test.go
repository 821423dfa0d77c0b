package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashplan/internal/core"
)

func rentReminder() *BillDueMessage {
	return NewBillDueMessage("rent", "Rent", core.NewDate(2024, 6, 5), core.Money{Cents: 120000}, core.Money{Cents: 90000}, 4)
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	want := []time.Duration{1, 2, 4, 8, 16, 30, 30}
	for attempt, secs := range want {
		assert.Equal(t, secs*time.Second, exponentialBackoff(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, maxBackoff, exponentialBackoff(40))
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{amqp091.ErrClosed, true},
		{fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("PRECONDITION_FAILED - inequivalent arg 'durable'"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isConnectionError(tt.err), "%v", tt.err)
	}
}

func TestCircuitBreaker(t *testing.T) {
	c := &Client{exchangeName: "cashplan", queueName: "bill_due"}
	require.False(t, c.isCircuitOpen())

	for i := 1; i < maxFailures; i++ {
		c.recordFailure()
	}
	assert.False(t, c.isCircuitOpen(), "one failure short of the threshold")

	c.recordFailure()
	assert.True(t, c.isCircuitOpen())

	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	assert.False(t, c.isCircuitOpen(), "open timeout elapsed")
	assert.Equal(t, StateHalfOpen, atomic.LoadInt32(&c.state))

	// A single failure while half-open trips the breaker again.
	atomic.StoreInt64(&c.failureCount, 0)
	c.recordFailure()
	assert.True(t, c.isCircuitOpen())

	c.recordSuccess()
	assert.False(t, c.isCircuitOpen())
	assert.Zero(t, atomic.LoadInt64(&c.failureCount))
}

func TestPublishBillDueShortCircuits(t *testing.T) {
	c := &Client{exchangeName: "cashplan", queueName: "bill_due"}

	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()
	err := c.PublishBillDue(context.Background(), rentReminder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")

	c.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.PublishBillDue(ctx, rentReminder()), context.Canceled)
}

func TestConsumeBillDueWithoutChannel(t *testing.T) {
	c := &Client{queueName: "bill_due"}
	err := c.ConsumeBillDue(context.Background(), func(context.Context, *BillDueMessage) error { return nil })
	assert.ErrorIs(t, err, amqp091.ErrClosed)
}

func TestBillDueMessage(t *testing.T) {
	msg := rentReminder()
	assert.Equal(t, "2024-06-05", msg.Due)
	assert.Equal(t, int64(90000), msg.NeedCents)
	assert.Equal(t, "rent@2024-06-05", msg.DedupKey())
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)

	data, err := msg.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"need_cents":90000`)

	back, err := BillDueMessageFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, msg.DedupKey(), back.DedupKey())
	assert.True(t, back.Timestamp.Equal(msg.Timestamp))

	_, err = BillDueMessageFromJSON([]byte(`{"bill_id": 7}`))
	assert.Error(t, err)
}
