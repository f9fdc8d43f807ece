package avsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAudioWithinSoftBudgetKeepsNoDiscontinuity(t *testing.T) {
	p := New(DropEarlyAudio)
	p.ObserveVideo(100_000_000) // 100ms

	d := p.EvaluateAudio(120_000_000) // 120ms, 20ms drift
	assert.True(t, d.Keep)
	assert.False(t, d.Discontinuity)
	assert.Equal(t, int64(20), d.DriftMS)
}

func TestEvaluateAudioPastHardLimitFlagsDiscontinuity(t *testing.T) {
	p := New(DropEarlyAudio)
	p.ObserveVideo(0)

	d := p.EvaluateAudio(150_000_000) // 150ms drift
	assert.True(t, d.Keep)
	assert.True(t, d.Discontinuity)
	assert.Equal(t, uint64(1), p.HardBreachCount())
}

func TestEvaluateAudioDropsEarlyPacketsUnderDropPolicy(t *testing.T) {
	p := New(DropEarlyAudio)
	p.ObserveVideo(500_000_000)

	d := p.EvaluateAudio(100_000_000)
	assert.False(t, d.Keep)
}

func TestEvaluateAudioKeepsEarlyPacketsUnderPadPolicy(t *testing.T) {
	p := New(PadEarlyAudio)
	p.ObserveVideo(500_000_000)

	d := p.EvaluateAudio(100_000_000)
	assert.True(t, d.Keep)
}

func TestFirstVideoPTSLatchesOnlyOnce(t *testing.T) {
	p := New(DropEarlyAudio)
	p.ObserveVideo(200_000_000)
	p.ObserveVideo(50_000_000) // later frame, earlier PTS would be a clock bug, but first-seen still wins

	// 100ms lies after the second observed video pts but before the first:
	// it is dropped only if the first-seen pts (200ms) stayed latched
	d := p.EvaluateAudio(100_000_000)
	assert.False(t, d.Keep)
}
