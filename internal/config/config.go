// Package config loads process-wide defaults for capturecore: where
// recordings are written, queue depths, and reconnection timing. Values
// come from environment variables and an optional TOML file, following
// the same viper-based layering the rest of the toolchain uses.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()

	v.SetDefault("output.dir", filepath.Join(xdg.Home, ".capturecore", "recordings"))
	v.SetDefault("queue.video_capacity", 8)
	v.SetDefault("queue.audio_capacity", 64)
	v.SetDefault("queue.video_policy", "drop_oldest")
	v.SetDefault("queue.audio_policy", "drop_oldest")
	v.SetDefault("reconnect.initial_backoff_ms", 200)
	v.SetDefault("reconnect.max_backoff_ms", 10000)
	v.SetDefault("reconnect.max_attempts", 0) // 0 == unbounded
	v.SetDefault("sync.max_drift_ms", 500)
	v.SetDefault("close.deadline_ms", 3000)

	v.AutomaticEnv()
	v.SetEnvPrefix("CAPTURECORE")
	_ = v.BindEnv("output.dir", "CAPTURECORE_OUTPUT_DIR")
	_ = v.BindEnv("queue.video_capacity", "CAPTURECORE_QUEUE_VIDEO_CAPACITY")
	_ = v.BindEnv("queue.audio_capacity", "CAPTURECORE_QUEUE_AUDIO_CAPACITY")
	_ = v.BindEnv("reconnect.initial_backoff_ms", "CAPTURECORE_RECONNECT_INITIAL_BACKOFF_MS")
	_ = v.BindEnv("reconnect.max_backoff_ms", "CAPTURECORE_RECONNECT_MAX_BACKOFF_MS")
	_ = v.BindEnv("sync.max_drift_ms", "CAPTURECORE_SYNC_MAX_DRIFT_MS")

	v.SetConfigName("capturecore")
	v.SetConfigType("toml")
	for _, path := range []string{".", "$HOME/.capturecore", "/etc/capturecore"} {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			panic("capturecore: fatal error reading config file: " + err.Error())
		}
	}
}

// OutputDir returns the directory new recordings are written to when
// the caller doesn't supply an explicit path.
func OutputDir() string {
	return v.GetString("output.dir")
}

// QueueDefaults returns the configured default capacities for the
// video and audio delivery queues.
func QueueDefaults() (videoCapacity, audioCapacity int) {
	return v.GetInt("queue.video_capacity"), v.GetInt("queue.audio_capacity")
}

// QueuePolicies returns the configured default drop policy names for
// the video and audio delivery queues ("drop_oldest" or "queue_n").
func QueuePolicies() (video, audio string) {
	return v.GetString("queue.video_policy"), v.GetString("queue.audio_policy")
}

// ReconnectDefaults returns the exponential backoff bounds and attempt
// cap used by the reconnection coordinator.
func ReconnectDefaults() (initial, max time.Duration, maxAttempts int) {
	return time.Duration(v.GetInt("reconnect.initial_backoff_ms")) * time.Millisecond,
		time.Duration(v.GetInt("reconnect.max_backoff_ms")) * time.Millisecond,
		v.GetInt("reconnect.max_attempts")
}

// MaxSyncDrift returns the configured sync.max_drift_ms value. The
// avsync policy does not read it; its hard limit is the fixed
// avsync.HardDriftLimitMS.
func MaxSyncDrift() time.Duration {
	return time.Duration(v.GetInt("sync.max_drift_ms")) * time.Millisecond
}

// CloseDeadline returns the bounded deadline sessions wait for capture
// tasks to join before forcing a close.
func CloseDeadline() time.Duration {
	return time.Duration(v.GetInt("close.deadline_ms")) * time.Millisecond
}
