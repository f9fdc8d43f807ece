package muxer

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/captureerr"
)

var testSPS = []byte{0x67, 0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01, 0xed, 0x80}
var testPPS = []byte{0x68, 0xce, 0x38, 0x80}

func annexBUnit(nal ...byte) []byte {
	out := append([]byte{}, 0x00, 0x00, 0x00, 0x01)
	return append(out, nal...)
}

func keyframeAU() []byte {
	var buf bytes.Buffer
	buf.Write(annexBUnit(testSPS...))
	buf.Write(annexBUnit(testPPS...))
	buf.Write(annexBUnit(0x65, 0x88, 0x84, 0x00)) // IDR slice (type 5)
	return buf.Bytes()
}

func interFrameAU(payload byte) []byte {
	return annexBUnit(0x41, payload, 0x00, 0x00) // non-IDR slice (type 1)
}

func defaultVideoCfg() RecordingConfig {
	return RecordingConfig{
		OutputPath: "out.mp4",
		Video:      VideoTrackConfig{Codec: "h264", Width: 640, Height: 480, FPS: 30},
	}
}

func TestIsobmffFirstSampleMustBeKeyframeWithSPSPPS(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewIsobmffMuxer(&buf, defaultVideoCfg())
	require.NoError(t, err)

	err = m.WriteVideo(0, interFrameAU(0), false)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindMissingSPSPPS))
}

func TestIsobmffRejectsNonIncreasingVideoPTS(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewIsobmffMuxer(&buf, defaultVideoCfg())
	require.NoError(t, err)

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	require.NoError(t, m.WriteVideo(0.033, interFrameAU(1), false))

	err = m.WriteVideo(0.033, interFrameAU(2), false)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindInvalidTimestamp))

	err = m.WriteVideo(0.01, interFrameAU(3), false)
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindInvalidTimestamp))
}

func TestIsobmffAudioBeforeVideoRejected(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultVideoCfg()
	cfg.Audio = &AudioTrackConfig{Codec: "opus", SampleRate: 48000, Channels: 1}
	m, err := NewIsobmffMuxer(&buf, cfg)
	require.NoError(t, err)

	err = m.WriteAudio(0, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestIsobmffFinishTwiceIsRejected(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewIsobmffMuxer(&buf, defaultVideoCfg())
	require.NoError(t, err)
	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))

	_, err = m.Finish()
	require.NoError(t, err)

	_, err = m.Finish()
	require.Error(t, err)
	assert.True(t, captureerr.Is(err, captureerr.KindAlreadyFinalized))
}

func TestIsobmffDefaultModeProducesFtypMoovMdat(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/default.mp4"
	f, err := os.Create(path)
	require.NoError(t, err)

	cfg := defaultVideoCfg()
	cfg.OutputPath = path
	m, err := NewIsobmffMuxer(f, cfg)
	require.NoError(t, err)

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	require.NoError(t, m.WriteVideo(0.033, interFrameAU(1), false))
	require.NoError(t, m.WriteVideo(0.066, interFrameAU(2), false))

	stats, err := m.Finish()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.VideoFrames)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data[4:8]), "ftyp")
	assert.Greater(t, len(data), 40)
	moovIdx := bytes.Index(data, []byte("moov"))
	mdatIdx := bytes.Index(data, []byte("mdat"))
	require.Greater(t, moovIdx, 0)
	require.Greater(t, mdatIdx, 0)
	assert.Less(t, mdatIdx, moovIdx, "default mode places mdat before moov")
}

func TestIsobmffFastStartOrdersMoovBeforeMdat(t *testing.T) {
	var buf bytes.Buffer
	cfg := defaultVideoCfg()
	cfg.FastStart = true
	m, err := NewIsobmffMuxer(&buf, cfg)
	require.NoError(t, err)

	require.NoError(t, m.WriteVideo(0, keyframeAU(), true))
	require.NoError(t, m.WriteVideo(0.033, interFrameAU(1), false))

	_, err = m.Finish()
	require.NoError(t, err)

	data := buf.Bytes()
	moovIdx := bytes.Index(data, []byte("moov"))
	mdatIdx := bytes.Index(data, []byte("mdat"))
	require.Greater(t, moovIdx, 0)
	require.Greater(t, mdatIdx, 0)
	assert.Less(t, moovIdx, mdatIdx, "fast-start must place moov before mdat")
}
