package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollSucceedsWhenConditionHolds(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollTimesOut(t *testing.T) {
	err := Poll(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, errors.Is(err, ErrPollTimeout))
}

func TestPollKeepsGoingThroughErrors(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, errors.New("page not ready")
		}
		return true, nil
	})
	assert.NoError(t, err)
}

func TestPollReportsLastErrorOnTimeout(t *testing.T) {
	err := Poll(context.Background(), time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, errors.New("target closed")
	})
	assert.True(t, errors.Is(err, ErrPollTimeout))
	assert.Contains(t, err.Error(), "target closed")
}

func TestPollCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Poll(ctx, time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, errors.Is(Sleep(ctx, time.Hour), context.Canceled))
}
