// Package muxer implements the MP4 (ISOBMFF) writer: it consumes
// encoded H.264 Annex-B video access units and Opus/AAC audio packets
// and emits a standards-compliant MP4 file in one of three modes
// (progressive, fast-start, fragmented). Fragmented mode is built on
// bluenviron/mediacommon/v2's fmp4/mp4 format packages. The classical
// (non-fragmented) moov/stbl sample-table writer hand-rolls ISOBMFF
// box encoding directly, since mediacommon's mp4 package only
// describes codec configuration records and does not assemble a
// conventional moov; see DESIGN.md for the full justification.
package muxer

import "time"

// VideoTrackConfig describes the single video track a recording may
// carry.
type VideoTrackConfig struct {
	Codec   string // "h264"
	Width   int
	Height  int
	FPS     float64
	Bitrate int
}

// AudioTrackConfig describes the optional single audio track.
type AudioTrackConfig struct {
	Codec      string // "opus" or "aac"
	SampleRate int
	Channels   int
	Bitrate    int
}

// RecordingConfig configures a Muxer instance.
type RecordingConfig struct {
	OutputPath string
	Video      VideoTrackConfig
	Audio      *AudioTrackConfig
	FastStart  bool
	Fragmented bool
	// SegmentDuration is the target fragment length in fragmented mode.
	// Defaults to 500ms if zero. The non-fragmented modes do not use it:
	// their chunks are runs of samples that lie contiguously in mdat.
	SegmentDuration time.Duration
}

func (c RecordingConfig) segmentDuration() time.Duration {
	if c.SegmentDuration <= 0 {
		return 500 * time.Millisecond
	}
	return c.SegmentDuration
}

// Stats is returned by Finish.
type Stats struct {
	VideoFrames  int
	AudioFrames  int
	BytesWritten int64
	Duration     time.Duration
}

// Muxer is the contract every mode implements. PTS values are in
// seconds; callers convert from the shared clock's tick units before
// calling.
type Muxer interface {
	// WriteVideo buffers one H.264 Annex-B access unit.
	WriteVideo(ptsSecs float64, annexB []byte, isKeyframe bool) error
	// WriteAudio buffers one encoded audio packet (raw Opus packet or
	// ADTS-stripped AAC access unit).
	WriteAudio(ptsSecs float64, packet []byte) error
	// Finish writes all sample tables / trailing segments and closes
	// the output. Writing after Finish returns AlreadyFinalized.
	Finish() (Stats, error)
}
