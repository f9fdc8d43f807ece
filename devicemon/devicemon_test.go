package devicemon

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
)

type fakeEnum struct {
	mu      sync.Mutex
	devices []backend.DeviceInfo
}

func (f *fakeEnum) Enumerate() ([]backend.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]backend.DeviceInfo, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *fakeEnum) set(devices []backend.DeviceInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = devices
}

func collectEvents(t *testing.T, ch <-chan Event, n int, timeout time.Duration) []Event {
	t.Helper()
	var out []Event
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case e := <-ch:
			out = append(out, e)
		case <-deadline:
			require.FailNow(t, "timed out waiting for events", "got %d of %d", len(out), n)
		}
	}
	return out
}

func TestMonitorEmitsConnectedOnFirstSeen(t *testing.T) {
	fe := &fakeEnum{devices: []backend.DeviceInfo{{ID: "d0", Name: "cam0", IsAvailable: true}}}
	m := New(fe, 10*time.Millisecond, 8)
	go m.Run()
	defer m.Stop()

	events := collectEvents(t, m.Events(), 1, time.Second)
	assert.Equal(t, Connected, events[0].Kind)
	assert.Equal(t, "d0", events[0].Device.ID)
}

func TestMonitorEmitsDisconnectedWhenDeviceDisappears(t *testing.T) {
	fe := &fakeEnum{devices: []backend.DeviceInfo{{ID: "d0", IsAvailable: true}}}
	m := New(fe, 10*time.Millisecond, 8)
	go m.Run()
	defer m.Stop()

	collectEvents(t, m.Events(), 1, time.Second) // connected

	fe.set(nil)
	events := collectEvents(t, m.Events(), 1, time.Second)
	assert.Equal(t, Disconnected, events[0].Kind)
}

func TestMonitorEmitsModifiedOnAvailabilityChange(t *testing.T) {
	fe := &fakeEnum{devices: []backend.DeviceInfo{{ID: "d0", IsAvailable: true}}}
	m := New(fe, 10*time.Millisecond, 8)
	go m.Run()
	defer m.Stop()

	collectEvents(t, m.Events(), 1, time.Second) // connected

	fe.set([]backend.DeviceInfo{{ID: "d0", IsAvailable: false}})
	events := collectEvents(t, m.Events(), 1, time.Second)
	assert.Equal(t, Modified, events[0].Kind)
	assert.False(t, events[0].Device.IsAvailable)
}

func TestMonitorStopJoinsPromptly(t *testing.T) {
	fe := &fakeEnum{}
	m := New(fe, 10*time.Millisecond, 8)
	go m.Run()

	time.Sleep(20 * time.Millisecond)
	m.Stop()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop promptly")
	}
}

func TestMonitorRecentRingBuffer(t *testing.T) {
	fe := &fakeEnum{devices: []backend.DeviceInfo{{ID: "d0", IsAvailable: true}}}
	m := New(fe, 10*time.Millisecond, 2)
	go m.Run()
	defer m.Stop()

	collectEvents(t, m.Events(), 1, time.Second)

	fe.set([]backend.DeviceInfo{{ID: "d0", IsAvailable: false}})
	collectEvents(t, m.Events(), 1, time.Second)

	recent := m.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, Connected, recent[0].Kind)
	assert.Equal(t, Modified, recent[1].Kind)
}
