package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/encoder"
	"github.com/Michael-A-Kuykendall/capturecore/internal/config"
	"github.com/Michael-A-Kuykendall/capturecore/muxer"
	"github.com/Michael-A-Kuykendall/capturecore/session"
)

// RecordOptions holds the flags for the record command.
type RecordOptions struct {
	VideoDevice   string
	AudioDevice   string
	AudioCodec    string
	OutputPath    string
	Width         int
	Height        int
	FPS           float64
	Duration      time.Duration
	Fragmented    bool
	FastStart     bool
	KeyframeEvery int
}

// NewRecordCommand opens a session with recording enabled and runs it
// for the requested duration, producing an MP4 file.
func NewRecordCommand() *cobra.Command {
	opts := &RecordOptions{}

	cmd := &cobra.Command{
		Use:   "record <video-device-id>",
		Short: "Capture and record to an MP4 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.VideoDevice = args[0]
			return runRecord(opts)
		},
	}

	cmd.Flags().StringVar(&opts.AudioDevice, "audio-device", "", "optional audio device id")
	cmd.Flags().StringVar(&opts.AudioCodec, "audio-codec", "opus", "audio codec to record: opus")
	cmd.Flags().StringVarP(&opts.OutputPath, "out", "f", "", "output file path; defaults under the configured output directory")
	cmd.Flags().IntVar(&opts.Width, "width", 640, "requested frame width")
	cmd.Flags().IntVar(&opts.Height, "height", 480, "requested frame height")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 30, "requested frame rate")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 10*time.Second, "recording duration")
	cmd.Flags().BoolVar(&opts.Fragmented, "fragmented", false, "write a fragmented (streaming-safe) MP4 instead of a progressive one")
	cmd.Flags().BoolVar(&opts.FastStart, "fast-start", false, "place the moov box before mdat (ignored when --fragmented)")
	cmd.Flags().IntVar(&opts.KeyframeEvery, "keyframe-every", 30, "frames between forced IDR keyframes")

	return cmd
}

func runRecord(opts *RecordOptions) error {
	outPath := opts.OutputPath
	if outPath == "" {
		outPath = filepath.Join(config.OutputDir(), fmt.Sprintf("capture-%s.mp4", time.Now().UTC().Format("20060102-150405")))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	cfg := buildCaptureConfig(opts.VideoDevice, opts.AudioDevice, opts.Width, opts.Height, opts.FPS)

	muxCfg := muxer.RecordingConfig{
		OutputPath: outPath,
		Video:      muxer.VideoTrackConfig{Codec: "h264", Width: opts.Width, Height: opts.Height, FPS: opts.FPS},
		Fragmented: opts.Fragmented,
		FastStart:  opts.FastStart,
	}
	if opts.AudioDevice != "" {
		muxCfg.Audio = &muxer.AudioTrackConfig{Codec: opts.AudioCodec, SampleRate: 48000, Channels: 1}
	}

	cfg.Recording = &session.RecordingConfig{
		Muxer:         muxCfg,
		KeyframeEvery: opts.KeyframeEvery,
		OpusOptions:   encoder.DefaultOpusEncoderOptions(),
	}

	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		return err
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" recording to %s (%s)", outPath, opts.Duration)
	sp.Start()
	time.Sleep(opts.Duration)
	sp.Stop()

	if err := s.Stop(); err != nil {
		_ = s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}

	stats := s.Stats()
	if stats.VideoFailed {
		printWarn("recording stopped early: video track failed")
	}
	printSuccess("done: frames=%d audio=%d drop_v=%d drop_a=%d -> %s",
		stats.FramesDelivered, stats.AudioDelivered, stats.DropCountVideo, stats.DropCountAudio, outPath)
	return nil
}
