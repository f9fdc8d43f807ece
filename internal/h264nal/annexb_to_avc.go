package h264nal

// AnnexBToAVCConverter rewrites a stream of Annex-B NAL units, each
// delimited by a start code, into AVCC form: each unit becomes a
// 4-byte big-endian length prefix followed by its payload. It keeps a
// reusable output buffer so repeated conversions on the hot encode
// path don't reallocate per call.
type AnnexBToAVCConverter struct {
	buffer []byte
}

// NewAnnexBToAVCConverter creates a converter with a buffer sized for
// a typical access unit.
func NewAnnexBToAVCConverter() *AnnexBToAVCConverter {
	return &AnnexBToAVCConverter{buffer: make([]byte, 0, 64*1024)}
}

// Convert rewrites one Annex-B access unit into AVCC form. The
// returned slice aliases the converter's internal buffer and is only
// valid until the next call to Convert.
func (c *AnnexBToAVCConverter) Convert(data []byte) ([]byte, error) {
	c.buffer = c.buffer[:0]
	for _, unit := range SplitByStartCodes(data) {
		_, width := findStartCode(unit)
		if width == 0 {
			continue
		}
		c.buffer = appendLengthPrefixed(c.buffer, unit[width:])
	}
	return c.buffer, nil
}

func appendLengthPrefixed(buf, payload []byte) []byte {
	n := uint32(len(payload))
	buf = append(buf, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(buf, payload...)
}

// PrependParameterSetsAVCC prepends length-prefixed SPS and PPS NAL
// payloads (raw, without start codes) ahead of an AVCC access unit.
// Used to carry parameter sets alongside every IDR rather than only in
// the init segment, so a player joining mid-stream can still decode.
func PrependParameterSetsAVCC(avcc, sps, pps []byte) []byte {
	if len(avcc) == 0 || len(sps) == 0 || len(pps) == 0 {
		return avcc
	}
	out := make([]byte, 0, 8+len(sps)+len(pps)+len(avcc))
	out = appendLengthPrefixed(out, sps)
	out = appendLengthPrefixed(out, pps)
	return append(out, avcc...)
}
