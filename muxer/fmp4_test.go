package muxer

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

func fragmentedVideoCfg() RecordingConfig {
	return RecordingConfig{
		OutputPath:      "out.mp4",
		Video:           VideoTrackConfig{Codec: "h264", Width: 640, Height: 480, FPS: 30},
		Fragmented:      true,
		SegmentDuration: 100 * time.Millisecond,
	}
}

func TestFragmentedRejectsAAC(t *testing.T) {
	cfg := fragmentedVideoCfg()
	cfg.Audio = &AudioTrackConfig{Codec: "aac", SampleRate: 48000, Channels: 2}

	_, err := NewFragmentedMuxer(&bytes.Buffer{}, cfg)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindUnsupportedCodec))
}

func TestFragmentedWritesInitSegmentOnFirstKeyframe(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewFragmentedMuxer(&buf, fragmentedVideoCfg())
	require.NoError(t, err)

	err = m.WriteVideo(0, interFrameAU(0), false)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindMissingSPSPPS))
	assert.Equal(t, 0, buf.Len())

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	assert.Greater(t, buf.Len(), 0)
	assert.True(t, m.videoInit)
}

func TestFragmentedFlushesSegmentsOnDuration(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewFragmentedMuxer(&buf, fragmentedVideoCfg())
	require.NoError(t, err)

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	sizeAfterInit := buf.Len()

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.WriteVideo(float64(i)*0.033, interFrameAU(byte(i)), false))
	}

	assert.Greater(t, buf.Len(), sizeAfterInit, "a media segment should have flushed once the segment duration elapsed")

	stats, err := m.Finish()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.VideoFrames)
}

func TestFragmentedRejectsNonIncreasingPTS(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewFragmentedMuxer(&buf, fragmentedVideoCfg())
	require.NoError(t, err)

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	require.NoError(t, m.WriteVideo(0.033, interFrameAU(1), false))

	err = m.WriteVideo(0.02, interFrameAU(2), false)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindInvalidTimestamp))
}

func TestFragmentedFinishTwiceRejected(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewFragmentedMuxer(&buf, fragmentedVideoCfg())
	require.NoError(t, err)
	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))

	_, err = m.Finish()
	require.NoError(t, err)

	_, err = m.Finish()
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindAlreadyFinalized))
}

func TestFactorySelectsModeByFragmentedFlag(t *testing.T) {
	var buf bytes.Buffer

	progressive, err := New(&buf, defaultVideoCfg())
	require.NoError(t, err)
	_, ok := progressive.(*IsobmffMuxer)
	assert.True(t, ok)

	frag, err := New(&buf, fragmentedVideoCfg())
	require.NoError(t, err)
	_, ok = frag.(*FragmentedMuxer)
	assert.True(t, ok)
}
