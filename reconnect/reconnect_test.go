package reconnect

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

type fakeEnum struct {
	mu            sync.Mutex
	devices       []backend.DeviceInfo
	recoverAfterN int
	calls         int
}

func (f *fakeEnum) Enumerate() ([]backend.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.recoverAfterN > 0 && f.calls >= f.recoverAfterN {
		return []backend.DeviceInfo{{ID: "d0", IsAvailable: true}}, nil
	}
	out := make([]backend.DeviceInfo, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func TestCoordinateRecoversWhenDeviceReturns(t *testing.T) {
	fe := &fakeEnum{recoverAfterN: 3}
	c := New(fe, Backoff{Initial: time.Millisecond, Factor: 2, Cap: 10 * time.Millisecond, MaxAttempts: 0})

	out := c.Coordinate(context.Background(), "d0", TrackVideo)
	assert.True(t, out.Recovered)
	assert.Equal(t, "d0", out.Device.ID)
}

func TestCoordinateExhaustsAttemptsForVideoIsTerminal(t *testing.T) {
	fe := &fakeEnum{}
	c := New(fe, Backoff{Initial: time.Millisecond, Factor: 2, Cap: 5 * time.Millisecond, MaxAttempts: 3})

	out := c.Coordinate(context.Background(), "d0", TrackVideo)
	require.False(t, out.Recovered)
	require.Error(t, out.Err)
	assert.True(t, captureerr.Is(out.Err, captureerr.KindCaptureFailed))
	assert.True(t, out.IsTerminal())
	assert.Equal(t, 3, out.Attempts)
}

func TestCoordinateExhaustsAttemptsForAudioIsNonTerminal(t *testing.T) {
	fe := &fakeEnum{}
	c := New(fe, Backoff{Initial: time.Millisecond, Factor: 2, Cap: 5 * time.Millisecond, MaxAttempts: 2})

	out := c.Coordinate(context.Background(), "d0", TrackAudio)
	require.False(t, out.Recovered)
	assert.True(t, captureerr.Is(out.Err, captureerr.KindAudioFailed))
	assert.False(t, out.IsTerminal())
}

func TestCoordinateRespectsContextCancellation(t *testing.T) {
	fe := &fakeEnum{}
	c := New(fe, Backoff{Initial: 10 * time.Millisecond, Factor: 2, Cap: time.Second, MaxAttempts: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	out := c.Coordinate(ctx, "d0", TrackVideo)
	assert.False(t, out.Recovered)
}

func TestBackoffScheduleGrowsAndCaps(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Factor: 2, Cap: 2 * time.Second, MaxAttempts: 0}
	assert.Equal(t, 100*time.Millisecond, b.next(1))
	assert.Equal(t, 200*time.Millisecond, b.next(2))
	assert.Equal(t, 400*time.Millisecond, b.next(3))
	assert.Equal(t, 2*time.Second, b.next(20))
}
