package muxer

import "bytes"

const movieTimescale = 1000 // mvhd ticks in milliseconds

func buildMvhd(durationMS uint32, nextTrackID uint32) []byte {
	payload := make([]byte, 0, 100)
	payload = append(payload, 0, 0, 0, 0) // version+flags
	payload = be32(payload, 0)            // creation_time
	payload = be32(payload, 0)            // modification_time
	payload = be32(payload, movieTimescale)
	payload = be32(payload, durationMS)
	payload = be32(payload, 0x00010000) // rate = 1.0
	payload = be16(payload, 0x0100)     // volume = 1.0
	payload = be16(payload, 0)          // reserved
	payload = append(payload, make([]byte, 8)...)
	// unity 3x3 transform matrix
	matrix := []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range matrix {
		payload = be32(payload, v)
	}
	payload = append(payload, make([]byte, 24)...) // pre_defined
	payload = be32(payload, nextTrackID)

	var buf bytes.Buffer
	box(&buf, "mvhd", payload)
	return buf.Bytes()
}

func buildTkhd(trackID uint32, durationMS uint32, isVideo bool, width, height uint16) []byte {
	payload := make([]byte, 0, 92)
	payload = append(payload, 0, 0, 0, 0x07) // version=0, flags=track_enabled|in_movie|in_preview
	payload = be32(payload, 0)               // creation_time
	payload = be32(payload, 0)               // modification_time
	payload = be32(payload, trackID)
	payload = be32(payload, 0) // reserved
	payload = be32(payload, durationMS)
	payload = append(payload, make([]byte, 8)...) // reserved
	payload = be16(payload, 0)                    // layer
	payload = be16(payload, 0)                    // alternate_group
	if isVideo {
		payload = be16(payload, 0)
	} else {
		payload = be16(payload, 0x0100) // volume = 1.0 for audio
	}
	payload = be16(payload, 0) // reserved
	matrix := []uint32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range matrix {
		payload = be32(payload, v)
	}
	payload = be32(payload, uint32(width)<<16)
	payload = be32(payload, uint32(height)<<16)

	var buf bytes.Buffer
	box(&buf, "tkhd", payload)
	return buf.Bytes()
}

func buildMdhd(timescale uint32, durationTicks uint32) []byte {
	payload := make([]byte, 0, 24)
	payload = append(payload, 0, 0, 0, 0)
	payload = be32(payload, 0) // creation_time
	payload = be32(payload, 0) // modification_time
	payload = be32(payload, timescale)
	payload = be32(payload, durationTicks)
	payload = be16(payload, 0x55C4) // language = und
	payload = be16(payload, 0)

	var buf bytes.Buffer
	box(&buf, "mdhd", payload)
	return buf.Bytes()
}

func buildHdlr(handlerType string, name string) []byte {
	payload := make([]byte, 0, 24+len(name)+1)
	payload = append(payload, 0, 0, 0, 0)
	payload = be32(payload, 0) // pre_defined
	payload = append(payload, []byte(handlerType)...)
	payload = append(payload, make([]byte, 12)...) // reserved
	payload = append(payload, []byte(name)...)
	payload = append(payload, 0) // null terminator

	var buf bytes.Buffer
	box(&buf, "hdlr", payload)
	return buf.Bytes()
}

func buildVmhd() []byte {
	payload := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0}
	var buf bytes.Buffer
	box(&buf, "vmhd", payload)
	return buf.Bytes()
}

func buildSmhd() []byte {
	payload := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	var buf bytes.Buffer
	box(&buf, "smhd", payload)
	return buf.Bytes()
}

func buildDinf() []byte {
	urlPayload := []byte{0, 0, 0, 1} // version+flags with self-contained flag set
	var urlBuf bytes.Buffer
	box(&urlBuf, "url ", urlPayload)

	drefPayload := make([]byte, 0, 8+urlBuf.Len())
	drefPayload = append(drefPayload, 0, 0, 0, 0)
	drefPayload = be32(drefPayload, 1)
	drefPayload = append(drefPayload, urlBuf.Bytes()...)

	var drefBuf bytes.Buffer
	box(&drefBuf, "dref", drefPayload)

	var buf bytes.Buffer
	box(&buf, "dinf", drefBuf.Bytes())
	return buf.Bytes()
}

func buildAvc1(width, height uint16, avcc []byte) []byte {
	var avcCBuf bytes.Buffer
	box(&avcCBuf, "avcC", avcc)

	payload := make([]byte, 0, 78+avcCBuf.Len())
	payload = append(payload, make([]byte, 6)...) // reserved
	payload = be16(payload, 1)                    // data_reference_index
	payload = be16(payload, 0)                    // pre_defined
	payload = be16(payload, 0)                    // reserved
	payload = append(payload, make([]byte, 12)...) // pre_defined
	payload = be16(payload, width)
	payload = be16(payload, height)
	payload = be32(payload, 0x00480000) // horizresolution 72dpi
	payload = be32(payload, 0x00480000) // vertresolution 72dpi
	payload = be32(payload, 0)          // reserved
	payload = be16(payload, 1)          // frame_count
	payload = append(payload, make([]byte, 32)...) // compressorname
	payload = be16(payload, 0x0018)     // depth = 24
	payload = be16(payload, 0xFFFF)     // pre_defined
	payload = append(payload, avcCBuf.Bytes()...)

	var buf bytes.Buffer
	box(&buf, "avc1", payload)
	return buf.Bytes()
}

// buildDOps writes an Opus codec-specific box (RFC-aligned field
// layout for OpusHead-derived parameters) for an 'Opus' sample entry.
func buildDOps(channels uint8, sampleRate uint32) []byte {
	payload := make([]byte, 0, 11)
	payload = append(payload, 0) // version
	payload = append(payload, channels)
	payload = be16(payload, 312) // pre-skip, conservative default (6.5ms @ 48kHz)
	payload = be32(payload, sampleRate)
	payload = be16(payload, 0) // output gain
	payload = append(payload, 0) // channel mapping family 0 (mono/stereo)

	var buf bytes.Buffer
	box(&buf, "dOps", payload)
	return buf.Bytes()
}

// buildAudioSampleEntryPrefix writes the fixed AudioSampleEntry fields
// shared by 'Opus' and 'mp4a' entries (ISO/IEC 14496-12 §8.16.3):
// SampleEntry base (reserved[6]+data_reference_index), then
// reserved[8], channelcount, samplesize, pre_defined, reserved,
// samplerate.
func buildAudioSampleEntryPrefix(channels uint8, sampleRate uint32) []byte {
	payload := make([]byte, 0, 28)
	payload = append(payload, make([]byte, 6)...) // SampleEntry.reserved
	payload = be16(payload, 1)                    // data_reference_index
	payload = append(payload, make([]byte, 8)...) // reserved
	payload = be16(payload, uint16(channels))
	payload = be16(payload, 16) // sample size
	payload = be16(payload, 0)  // pre_defined
	payload = be16(payload, 0)  // reserved
	payload = be32(payload, sampleRate<<16)
	return payload
}

func buildOpusEntry(channels uint8, sampleRate uint32) []byte {
	dOps := buildDOps(channels, sampleRate)
	payload := append(buildAudioSampleEntryPrefix(channels, sampleRate), dOps...)

	var buf bytes.Buffer
	box(&buf, "Opus", payload)
	return buf.Bytes()
}

// buildEsds writes a minimal MPEG-4 ES descriptor sufficient to
// identify the stream as AAC audio. Its DecoderSpecificInfo is a fixed
// placeholder AudioSpecificConfig (AAC-LC, 48kHz, stereo) whatever
// channels and sampleRate are, since this core has no AAC encoder to
// source one from.
func buildEsds(channels uint8, sampleRate uint32) []byte {
	decConfig := []byte{0x40, 0x15, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	decSpecific := []byte{0x11, 0x90} // placeholder AudioSpecificConfig

	var dsiDesc bytes.Buffer
	dsiDesc.WriteByte(0x05)
	dsiDesc.WriteByte(byte(len(decSpecific)))
	dsiDesc.Write(decSpecific)

	var decConfigDesc bytes.Buffer
	decConfigDesc.WriteByte(0x04)
	decConfigDesc.WriteByte(byte(len(decConfig) + dsiDesc.Len()))
	decConfigDesc.Write(decConfig)
	decConfigDesc.Write(dsiDesc.Bytes())

	slConfig := []byte{0x06, 0x01, 0x02}

	esDescBody := make([]byte, 0, 3+decConfigDesc.Len()+len(slConfig))
	esDescBody = be16(esDescBody, 1) // ES_ID
	esDescBody = append(esDescBody, 0) // flags
	esDescBody = append(esDescBody, decConfigDesc.Bytes()...)
	esDescBody = append(esDescBody, slConfig...)

	var esDesc bytes.Buffer
	esDesc.WriteByte(0x03)
	esDesc.WriteByte(byte(len(esDescBody)))
	esDesc.Write(esDescBody)

	payload := make([]byte, 0, 4+esDesc.Len())
	payload = append(payload, 0, 0, 0, 0)
	payload = append(payload, esDesc.Bytes()...)

	var buf bytes.Buffer
	box(&buf, "esds", payload)
	return buf.Bytes()
}

func buildMp4aEntry(channels uint8, sampleRate uint32) []byte {
	esds := buildEsds(channels, sampleRate)
	payload := append(buildAudioSampleEntryPrefix(channels, sampleRate), esds...)

	var buf bytes.Buffer
	box(&buf, "mp4a", payload)
	return buf.Bytes()
}

func buildStsd(sampleEntry []byte) []byte {
	payload := make([]byte, 0, 8+len(sampleEntry))
	payload = append(payload, 0, 0, 0, 0)
	payload = be32(payload, 1) // entry_count
	payload = append(payload, sampleEntry...)

	var buf bytes.Buffer
	box(&buf, "stsd", payload)
	return buf.Bytes()
}

func buildStbl(sampleEntry []byte, stts, stsz, stsc, stco, stss []byte) []byte {
	var payload bytes.Buffer
	payload.Write(buildStsd(sampleEntry))
	payload.Write(stts)
	payload.Write(stsz)
	payload.Write(stsc)
	payload.Write(stco)
	if stss != nil {
		payload.Write(stss)
	}

	var buf bytes.Buffer
	box(&buf, "stbl", payload.Bytes())
	return buf.Bytes()
}

func buildMinf(mediaHeader, stbl []byte) []byte {
	var payload bytes.Buffer
	payload.Write(mediaHeader)
	payload.Write(buildDinf())
	payload.Write(stbl)

	var buf bytes.Buffer
	box(&buf, "minf", payload.Bytes())
	return buf.Bytes()
}

func buildMdia(mdhd, hdlr, minf []byte) []byte {
	var payload bytes.Buffer
	payload.Write(mdhd)
	payload.Write(hdlr)
	payload.Write(minf)

	var buf bytes.Buffer
	box(&buf, "mdia", payload.Bytes())
	return buf.Bytes()
}

func buildTrak(tkhd, mdia []byte) []byte {
	var payload bytes.Buffer
	payload.Write(tkhd)
	payload.Write(mdia)

	var buf bytes.Buffer
	box(&buf, "trak", payload.Bytes())
	return buf.Bytes()
}

func buildMoov(mvhd []byte, traks [][]byte) []byte {
	var payload bytes.Buffer
	payload.Write(mvhd)
	for _, t := range traks {
		payload.Write(t)
	}

	var buf bytes.Buffer
	box(&buf, "moov", payload.Bytes())
	return buf.Bytes()
}
