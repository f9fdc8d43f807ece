// Package h264nal implements the small slice of H.264 Annex-B parsing
// the capture pipeline actually needs: locating NAL unit boundaries,
// reading a unit's type byte, and converting a stream of Annex-B
// access units into length-prefixed AVCC form for MP4 packaging.
package h264nal

import "bytes"

// StartCode3 and StartCode4 are the two Annex-B start code widths; a
// conformant bitstream may mix both, so every scan finds the first
// 3-byte code and then checks whether a preceding zero byte makes it
// the 4-byte form (otherwise a 4-byte code would be read as a 3-byte
// code one byte late).
var (
	StartCode3 = []byte{0x00, 0x00, 0x01}
	StartCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// NALUnitType is the 5-bit nal_unit_type field from a NAL unit header.
type NALUnitType uint8

const (
	NALUnitTypeSlice     NALUnitType = 1
	NALUnitTypeDPA       NALUnitType = 2
	NALUnitTypeDPB       NALUnitType = 3
	NALUnitTypeDPC       NALUnitType = 4
	NALUnitTypeIDR       NALUnitType = 5
	NALUnitTypeSEI       NALUnitType = 6
	NALUnitTypeSPS       NALUnitType = 7
	NALUnitTypePPS       NALUnitType = 8
	NALUnitTypeAUD       NALUnitType = 9
	NALUnitTypeEndSeq    NALUnitType = 10
	NALUnitTypeEndStream NALUnitType = 11
	NALUnitTypeFiller    NALUnitType = 12
)

// findStartCode locates the first Annex-B start code in data and
// reports its width (3 or 4), so callers never have to re-derive how
// many bytes to skip past it.
func findStartCode(data []byte) (pos, width int) {
	p := bytes.Index(data, StartCode3)
	if p == -1 {
		return -1, 0
	}
	if p > 0 && data[p-1] == 0x00 {
		return p - 1, 4
	}
	return p, 3
}

// GetNALUnitType reads the nal_unit_type of the first NAL unit in
// data, which must begin with (or contain, scanning forward to) a
// start code.
func GetNALUnitType(data []byte) (NALUnitType, bool) {
	pos, width := findStartCode(data)
	if pos == -1 || pos+width >= len(data) {
		return 0, false
	}
	return NALUnitType(data[pos+width] & 0x1F), true
}

// SplitByStartCodes splits Annex-B data into individual NAL units,
// each one still carrying the start code it was delimited by.
func SplitByStartCodes(data []byte) [][]byte {
	pos, width := findStartCode(data)
	if pos == -1 {
		return nil
	}

	var units [][]byte
	start, offset := pos, pos+width
	for {
		nextPos, nextWidth := findStartCode(data[offset:])
		if nextPos == -1 {
			return append(units, data[start:])
		}
		units = append(units, data[start:offset+nextPos])
		start = offset + nextPos
		offset = start + nextWidth
	}
}
