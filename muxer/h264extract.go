package muxer

import "github.com/Michael-A-Kuykendall/capturecore/internal/h264nal"

// extractSPSPPS scans an Annex-B access unit for its SPS and PPS NAL
// units and returns them with their start codes stripped, ready for
// avcC packaging.
func extractSPSPPS(annexB []byte) (sps, pps []byte, ok bool) {
	for _, unit := range h264nal.SplitByStartCodes(annexB) {
		t, found := h264nal.GetNALUnitType(unit)
		if !found {
			continue
		}
		switch t {
		case h264nal.NALUnitTypeSPS:
			sps = stripStartCode(unit)
		case h264nal.NALUnitTypePPS:
			pps = stripStartCode(unit)
		}
	}
	return sps, pps, len(sps) > 0 && len(pps) > 0
}

func stripStartCode(unit []byte) []byte {
	switch {
	case len(unit) >= 4 && unit[0] == 0 && unit[1] == 0 && unit[2] == 0 && unit[3] == 1:
		return append([]byte{}, unit[4:]...)
	case len(unit) >= 3 && unit[0] == 0 && unit[1] == 0 && unit[2] == 1:
		return append([]byte{}, unit[3:]...)
	default:
		return append([]byte{}, unit...)
	}
}
