package h264nal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annexBUnit(payload []byte) []byte {
	return append(append([]byte{}, StartCode4...), payload...)
}

func TestConvertRewritesStartCodesToLengthPrefixes(t *testing.T) {
	sps := []byte{0x67, 0x42, 0x00, 0x1e, 0x96, 0x54, 0x05, 0x01, 0xed, 0x80}
	pps := []byte{0x68, 0xce, 0x38, 0x80}
	annexB := append(annexBUnit(sps), annexBUnit(pps)...)

	c := NewAnnexBToAVCConverter()
	avc, err := c.Convert(annexB)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(avc), 8)
	spsLen := uint32(avc[0])<<24 | uint32(avc[1])<<16 | uint32(avc[2])<<8 | uint32(avc[3])
	assert.Equal(t, uint32(len(sps)), spsLen)
	assert.Equal(t, sps, avc[4:4+spsLen])

	ppsOffset := 4 + int(spsLen)
	ppsLen := uint32(avc[ppsOffset])<<24 | uint32(avc[ppsOffset+1])<<16 | uint32(avc[ppsOffset+2])<<8 | uint32(avc[ppsOffset+3])
	assert.Equal(t, uint32(len(pps)), ppsLen)
	assert.Equal(t, pps, avc[ppsOffset+4:ppsOffset+4+int(ppsLen)])
}

func TestConvertReusesBufferAcrossCalls(t *testing.T) {
	c := NewAnnexBToAVCConverter()
	first, err := c.Convert(annexBUnit([]byte{0x01, 0x02}))
	require.NoError(t, err)
	firstCopy := append([]byte{}, first...)

	_, err = c.Convert(annexBUnit([]byte{0x03}))
	require.NoError(t, err)

	// first now aliases the converter's internal buffer and has been
	// overwritten; firstCopy is the only safe reference to the old result.
	assert.NotEqual(t, firstCopy, first)
}

func TestPrependParameterSetsAVCC(t *testing.T) {
	sps := []byte{0xaa, 0xbb}
	pps := []byte{0xcc}
	avcc := []byte{0x00, 0x00, 0x00, 0x01, 0xff}

	out := PrependParameterSetsAVCC(avcc, sps, pps)

	spsLen := uint32(out[0])<<24 | uint32(out[1])<<16 | uint32(out[2])<<8 | uint32(out[3])
	assert.Equal(t, uint32(2), spsLen)
	assert.Equal(t, sps, out[4:6])

	ppsLen := uint32(out[6])<<24 | uint32(out[7])<<16 | uint32(out[8])<<8 | uint32(out[9])
	assert.Equal(t, uint32(1), ppsLen)
	assert.Equal(t, pps, out[10:11])

	assert.Equal(t, avcc, out[11:])
}

func TestPrependParameterSetsAVCCNoopsWithoutBothSets(t *testing.T) {
	avcc := []byte{0x00, 0x00, 0x00, 0x01, 0xff}
	assert.Equal(t, avcc, PrependParameterSetsAVCC(avcc, nil, []byte{0x01}))
	assert.Equal(t, avcc, PrependParameterSetsAVCC(avcc, []byte{0x01}, nil))
}
