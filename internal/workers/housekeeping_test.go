package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gymcore_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeps struct {
	mu          sync.Mutex
	expireCalls []time.Time
	closeCalls  int
	expireErr   error
	closeErr    error
}

func (f *fakeSweeps) ExpireLapsed(_ context.Context, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls = append(f.expireCalls, at)
	return 2, f.expireErr
}

func (f *fakeSweeps) AutoCheckOutAll(_ context.Context) (*models.AutoCheckOutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	return &models.AutoCheckOutResult{Closed: 1}, nil
}

func (f *fakeSweeps) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.expireCalls), f.closeCalls
}

func TestRunOnceUsesClock(t *testing.T) {
	fake := &fakeSweeps{}
	h := NewHousekeeper(fake, fake, time.Hour)
	at := time.Date(2024, 1, 25, 3, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return at }

	h.RunOnce(context.Background())

	require.Len(t, fake.expireCalls, 1)
	assert.True(t, fake.expireCalls[0].Equal(at))
	assert.Equal(t, 1, fake.closeCalls)
}

func TestRunOnceContinuesAfterExpiryFailure(t *testing.T) {
	fake := &fakeSweeps{expireErr: errors.New("db down")}
	h := NewHousekeeper(fake, fake, time.Hour)

	h.RunOnce(context.Background())

	expires, closes := fake.counts()
	assert.Equal(t, 1, expires)
	assert.Equal(t, 1, closes)
}

func TestRunOnceToleratesCloseFailure(t *testing.T) {
	fake := &fakeSweeps{closeErr: errors.New("db down")}
	h := NewHousekeeper(fake, fake, time.Hour)

	assert.NotPanics(t, func() { h.RunOnce(context.Background()) })
}

func TestNewHousekeeperDefaultsInterval(t *testing.T) {
	h := NewHousekeeper(&fakeSweeps{}, &fakeSweeps{}, 0)
	assert.Equal(t, DefaultHousekeepingInterval, h.interval)
}

func TestStartSweepsUntilCancelled(t *testing.T) {
	fake := &fakeSweeps{}
	h := NewHousekeeper(fake, fake, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		expires, _ := fake.counts()
		return expires >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("housekeeper did not stop after cancel")
	}
}
