package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockVideoEnumerate(t *testing.T) {
	mv := NewMockVideo()
	infos, err := mv.Enumerate()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
	for _, info := range infos {
		assert.True(t, info.IsAvailable)
		assert.Equal(t, KindVideo, info.Kind)
	}
}

func TestMockVideoDeterministicBySeed(t *testing.T) {
	format := VideoFormat{Width: 320, Height: 240, FPS: 1000, PixelFormat: PixelFormatI420}

	mv1 := NewMockVideo()
	h1, err := mv1.Open("mock_0", format)
	require.NoError(t, err)
	f1, err := mv1.NextFrame(h1, time.Second)
	require.NoError(t, err)

	mv2 := NewMockVideo()
	h2, err := mv2.Open("mock_0", format)
	require.NoError(t, err)
	f2, err := mv2.NextFrame(h2, time.Second)
	require.NoError(t, err)

	assert.Equal(t, f1.Seq, f2.Seq)
	assert.Equal(t, f1.Data, f2.Data)
}

func TestMockVideoSeqIncrements(t *testing.T) {
	mv := NewMockVideo()
	format := VideoFormat{Width: 64, Height: 64, FPS: 1000, PixelFormat: PixelFormatI420}
	h, err := mv.Open("mock_0", format)
	require.NoError(t, err)

	for i := uint64(0); i < 5; i++ {
		f, err := mv.NextFrame(h, time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, f.Seq)
	}
}

func TestMockVideoOpenUnknownDevice(t *testing.T) {
	mv := NewMockVideo()
	_, err := mv.Open("mock_does_not_exist", VideoFormat{})
	require.Error(t, err)
}

func TestMockVideoDisconnectReconnect(t *testing.T) {
	mv := NewMockVideo()
	format := VideoFormat{Width: 64, Height: 64, FPS: 1000, PixelFormat: PixelFormatI420}
	h, err := mv.Open("mock_0", format)
	require.NoError(t, err)

	mv.SimulateDisconnect("mock_0")
	_, err = mv.NextFrame(h, time.Second)
	require.Error(t, err)

	infos, _ := mv.Enumerate()
	for _, info := range infos {
		if info.ID == "mock_0" {
			assert.False(t, info.IsAvailable)
		}
	}

	mv.SimulateReconnect("mock_0")
	_, err = mv.Open("mock_0", format)
	require.NoError(t, err)
}

func TestMockVideoTimeoutShorterThanFrameInterval(t *testing.T) {
	mv := NewMockVideo()
	format := VideoFormat{Width: 64, Height: 64, FPS: 1, PixelFormat: PixelFormatI420}
	h, err := mv.Open("mock_0", format)
	require.NoError(t, err)

	_, err = mv.NextFrame(h, 10*time.Millisecond)
	require.Error(t, err)
}

func TestMockAudioPacketSizing(t *testing.T) {
	ma := NewMockAudio(false)
	format := AudioFormat{SampleRate: 48000, Channels: 2, SampleFormat: SampleFormatS16LE}
	h, err := ma.Open("mock_audio_0", format)
	require.NoError(t, err)

	pkt, err := ma.NextPacket(h, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 48000/50*2*2, len(pkt.Data)) // 20ms, 2ch, 16-bit
}
