package muxer

import "io"

// New selects the concrete Muxer implementation for cfg: fragmented
// when cfg.Fragmented is set, otherwise the conventional ISOBMFF
// writer in either default or fast-start ordering.
func New(w io.Writer, cfg RecordingConfig) (Muxer, error) {
	if cfg.Fragmented {
		return NewFragmentedMuxer(w, cfg)
	}
	return NewIsobmffMuxer(w, cfg)
}
