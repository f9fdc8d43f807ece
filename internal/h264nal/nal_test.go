package h264nal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitByStartCodesKeepsEachUnitsStartCode(t *testing.T) {
	data := append(annexBUnit([]byte{0x67, 0x01}), annexBUnit([]byte{0x68, 0x02})...)

	units := SplitByStartCodes(data)
	if assert.Len(t, units, 2) {
		assert.Equal(t, annexBUnit([]byte{0x67, 0x01}), units[0])
		assert.Equal(t, annexBUnit([]byte{0x68, 0x02}), units[1])
	}
}

func TestSplitByStartCodesHandlesMixedWidths(t *testing.T) {
	unit1 := append(append([]byte{}, StartCode3...), 0x09, 0x10)
	unit2 := annexBUnit([]byte{0x67})
	data := append(append([]byte{}, unit1...), unit2...)

	units := SplitByStartCodes(data)
	if assert.Len(t, units, 2) {
		assert.Equal(t, unit1, units[0])
		assert.Equal(t, unit2, units[1])
	}
}

func TestSplitByStartCodesOnDataWithNoStartCodeReturnsNil(t *testing.T) {
	assert.Nil(t, SplitByStartCodes([]byte{0x01, 0x02, 0x03}))
}

func TestGetNALUnitTypeReadsFiveBitField(t *testing.T) {
	typ, ok := GetNALUnitType(annexBUnit([]byte{0x67})) // nal_ref_idc=3, type=7 (SPS)
	assert.True(t, ok)
	assert.Equal(t, NALUnitTypeSPS, typ)
}

func TestGetNALUnitTypeOnTruncatedDataFails(t *testing.T) {
	_, ok := GetNALUnitType(StartCode4)
	assert.False(t, ok)
}
