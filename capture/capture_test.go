package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/clock"
	"github.com/Michael-A-Kuykendall/capturecore/queue"
)

func TestVideoTaskDeliversFramesInOrder(t *testing.T) {
	be := backend.NewMockVideo()
	h, err := be.Open("mock_0", backend.VideoFormat{Width: 640, Height: 480, FPS: 30, PixelFormat: backend.PixelFormatI420})
	require.NoError(t, err)
	require.NoError(t, be.Start(h))
	defer be.Close(h)

	q := queue.New[*backend.Frame](8, queue.DropOldest)
	task := NewVideoTask("mock_0", be, h, clock.New(), q)

	go task.Run()

	var frames []*backend.Frame
	for len(frames) < 5 {
		f, err := q.Pop(time.Second)
		require.NoError(t, err)
		frames = append(frames, f)
	}

	task.Stop()
	require.NoError(t, task.Join(time.Second))

	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Seq, frames[i-1].Seq)
	}
}

func TestVideoTaskStopJoinsPromptly(t *testing.T) {
	be := backend.NewMockVideo()
	h, err := be.Open("mock_0", backend.VideoFormat{Width: 640, Height: 480, FPS: 30, PixelFormat: backend.PixelFormatI420})
	require.NoError(t, err)
	require.NoError(t, be.Start(h))
	defer be.Close(h)

	q := queue.New[*backend.Frame](8, queue.DropOldest)
	task := NewVideoTask("mock_0", be, h, clock.New(), q)
	go task.Run()

	time.Sleep(20 * time.Millisecond)
	task.Stop()

	err = task.Join(500 * time.Millisecond)
	assert.NoError(t, err)
}

func TestVideoTaskSurfacesPermanentFailure(t *testing.T) {
	be := backend.NewMockVideo()
	h, err := be.Open("mock_0", backend.VideoFormat{Width: 640, Height: 480, FPS: 30, PixelFormat: backend.PixelFormatI420})
	require.NoError(t, err)
	require.NoError(t, be.Start(h))

	q := queue.New[*backend.Frame](8, queue.DropOldest)
	task := NewVideoTask("mock_0", be, h, clock.New(), q)
	go task.Run()

	time.Sleep(10 * time.Millisecond)
	be.SimulateDisconnect("mock_0")

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not exit after permanent backend failure")
	}

	require.Error(t, task.Failure)
}

func TestAudioTaskDeliversPacketsInOrder(t *testing.T) {
	be := backend.NewMockAudio(false)
	h, err := be.Open("mock_audio_0", backend.AudioFormat{SampleRate: 48000, Channels: 2, SampleFormat: backend.SampleFormatS16LE})
	require.NoError(t, err)
	require.NoError(t, be.Start(h))
	defer be.Close(h)

	q := queue.New[*backend.AudioPacket](64, queue.DropOldest)
	task := NewAudioTask("mock_audio_0", be, h, clock.New(), q)
	go task.Run()

	var packets []*backend.AudioPacket
	for len(packets) < 5 {
		p, err := q.Pop(time.Second)
		require.NoError(t, err)
		packets = append(packets, p)
	}

	task.Stop()
	require.NoError(t, task.Join(time.Second))

	for i := 1; i < len(packets); i++ {
		assert.Greater(t, packets[i].Seq, packets[i-1].Seq)
	}
}
