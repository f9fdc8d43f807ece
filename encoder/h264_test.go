package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Michael-A-Kuykendall/capturecore/backend"
	"github.com/Michael-A-Kuykendall/capturecore/internal/h264nal"
)

func TestH264EncoderFirstUnitIsKeyframeWithSPSPPS(t *testing.T) {
	enc := NewH264Encoder(NewMockH264Core(), 0)
	frame := &backend.Frame{Seq: 0, PTS: 0, Data: []byte{0xAA, 0xBB, 0xCC}}

	unit, err := enc.Encode(frame)
	require.NoError(t, err)

	assert.True(t, unit.IsKeyframe)
	assert.True(t, unit.ContainsSPSPPS)

	nalUnits := h264nal.SplitByStartCodes(unit.Data)
	require.Len(t, nalUnits, 3) // SPS, PPS, IDR slice

	spsType, ok := h264nal.GetNALUnitType(nalUnits[0])
	require.True(t, ok)
	assert.Equal(t, h264nal.NALUnitTypeSPS, spsType)

	ppsType, ok := h264nal.GetNALUnitType(nalUnits[1])
	require.True(t, ok)
	assert.Equal(t, h264nal.NALUnitTypePPS, ppsType)

	sliceType, ok := h264nal.GetNALUnitType(nalUnits[2])
	require.True(t, ok)
	assert.Equal(t, h264nal.NALUnitTypeIDR, sliceType)
}

func TestH264EncoderForcesKeyframeCadence(t *testing.T) {
	enc := NewH264Encoder(NewMockH264Core(), 3)

	var keyframes []bool
	for i := 0; i < 6; i++ {
		frame := &backend.Frame{Seq: uint64(i), PTS: uint64(i) * 1000, Data: []byte{byte(i)}}
		unit, err := enc.Encode(frame)
		require.NoError(t, err)
		keyframes = append(keyframes, unit.IsKeyframe)
	}

	assert.True(t, keyframes[0])
	assert.True(t, keyframes[3])
	assert.False(t, keyframes[1])
	assert.False(t, keyframes[2])
}
