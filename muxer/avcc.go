package muxer

// buildAVCConfigRecord assembles an avcC (AVCDecoderConfigurationRecord)
// payload from a single SPS/PPS pair, per ISO/IEC 14496-15. Only one
// SPS and one PPS are supported, matching the encoder adapters' single
// active parameter set.
func buildAVCConfigRecord(sps, pps []byte) []byte {
	var profile, compat, level byte
	if len(sps) >= 4 {
		profile, compat, level = sps[1], sps[2], sps[3]
	}

	out := make([]byte, 0, 11+len(sps)+len(pps))
	out = append(out, 0x01)               // configurationVersion
	out = append(out, profile, compat, level)
	out = append(out, 0xFF) // reserved(6)=1 + lengthSizeMinusOne=3 (4-byte lengths)
	out = append(out, 0xE1) // reserved(3)=1 + numOfSequenceParameterSets=1

	out = append(out, byte(len(sps)>>8), byte(len(sps)))
	out = append(out, sps...)

	out = append(out, 0x01) // numOfPictureParameterSets
	out = append(out, byte(len(pps)>>8), byte(len(pps)))
	out = append(out, pps...)

	return out
}
