package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/internal/config"
	"github.com/Michael-A-Kuykendall/capturecore/reconnect"
	"github.com/Michael-A-Kuykendall/capturecore/session"
)

// CaptureOptions holds the flags for the capture command.
type CaptureOptions struct {
	VideoDevice string
	AudioDevice string
	Width       int
	Height      int
	FPS         float64
	Duration    time.Duration
	StatsEvery  time.Duration
	OutputFormat string
}

// NewCaptureCommand opens a session and prints a running stats line
// until the configured duration elapses, without writing a recording.
// This is the headless equivalent of a camera preview window.
func NewCaptureCommand() *cobra.Command {
	opts := &CaptureOptions{}

	cmd := &cobra.Command{
		Use:   "capture <video-device-id>",
		Short: "Open a capture session and report live delivery stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.VideoDevice = args[0]
			return runCapture(opts)
		},
	}

	cmd.Flags().StringVar(&opts.AudioDevice, "audio-device", "", "optional audio device id")
	cmd.Flags().IntVar(&opts.Width, "width", 640, "requested frame width")
	cmd.Flags().IntVar(&opts.Height, "height", 480, "requested frame height")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 30, "requested frame rate")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "capture duration, 0 runs until interrupted")
	cmd.Flags().DurationVar(&opts.StatsEvery, "stats-interval", time.Second, "how often to print a stats line")
	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "text", "output format for the stats lines: json or text")
	_ = cmd.RegisterFlagCompletionFunc("output", outputFormatCompletion)

	return cmd
}

func buildCaptureConfig(videoDevice, audioDevice string, width, height int, fps float64) session.CaptureConfig {
	videoCap, audioCap := config.QueueDefaults()
	videoPolicyName, audioPolicyName := config.QueuePolicies()
	initial, max, maxAttempts := config.ReconnectDefaults()

	return session.CaptureConfig{
		VideoDeviceID: videoDevice,
		VideoFormat:   backend.VideoFormat{Width: width, Height: height, FPS: fps, PixelFormat: backend.PixelFormatI420},
		AudioDeviceID: audioDevice,
		AudioFormat:   backend.AudioFormat{SampleRate: 48000, Channels: 1, SampleFormat: backend.SampleFormatS16LE},

		QueueVideoCapacity: videoCap,
		QueueAudioCapacity: audioCap,
		QueueVideoPolicy:   parseQueuePolicy(videoPolicyName),
		QueueAudioPolicy:   parseQueuePolicy(audioPolicyName),

		EnableDeviceMonitor: true,
		ReconnectBackoff:    reconnect.Backoff{Initial: initial, Factor: 2, Cap: max, MaxAttempts: maxAttempts},
		CloseDeadline:       config.CloseDeadline(),
	}
}

func runCapture(opts *CaptureOptions) error {
	cfg := buildCaptureConfig(opts.VideoDevice, opts.AudioDevice, opts.Width, opts.Height, opts.FPS)

	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		_ = s.Close()
		return err
	}

	deadline := time.Time{}
	if opts.Duration > 0 {
		deadline = time.Now().Add(opts.Duration)
	}
	ticker := time.NewTicker(opts.StatsEvery)
	defer ticker.Stop()

	go func() {
		for {
			_, err := s.NextFrame(200 * time.Millisecond)
			if err != nil {
				return
			}
		}
	}()

	for {
		<-ticker.C
		stats := s.Stats()
		if opts.OutputFormat == "json" {
			_ = printJSON(stats)
		} else {
			fmt.Printf("frames=%d audio=%d drop_v=%d drop_a=%d video_failed=%v audio_failed=%v\n",
				stats.FramesDelivered, stats.AudioDelivered, stats.DropCountVideo, stats.DropCountAudio,
				stats.VideoFailed, stats.AudioFailed)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if stats.VideoFailed {
			break
		}
	}

	if err := s.Stop(); err != nil {
		_ = s.Close()
		return err
	}
	return s.Close()
}
