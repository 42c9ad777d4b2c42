package mp4

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Dec3Substream is one independent substream description within a dec3 box.
type Dec3Substream struct {
	Fscod     uint8
	Bsid      uint8
	Bsmod     uint8
	Acmod     uint8
	Lfeon     bool
	NumDepSub uint8
	ChanLoc   uint16 // valid only when NumDepSub > 0
}

// Dec3 is the EC3SpecificBox (dec3), ETSI TS 102 366 Annex F.
type Dec3 struct {
	DataRate     uint16 // 13 bits
	Substreams   []Dec3Substream
}

func (d *Dec3) SampleRate() uint32 {
	if len(d.Substreams) == 0 || d.Substreams[0].Fscod > 2 {
		return 0
	}
	return ac3SampleRateTable[d.Substreams[0].Fscod]
}

func decodeDec3(box *Box, buf []byte, start, end int) error {
	r := bitio.NewReader(bytes.NewReader(buf[start:end]))
	dataRate, err := r.ReadBits(13)
	if err != nil {
		return fmt.Errorf("dec3 data_rate: %w", ErrInvalidData)
	}
	numIndSub, err := r.ReadBits(3)
	if err != nil {
		return fmt.Errorf("dec3 num_ind_sub: %w", ErrInvalidData)
	}
	d := &Dec3{DataRate: uint16(dataRate)}
	for i := uint64(0); i <= numIndSub; i++ {
		var s Dec3Substream
		fscod, _ := r.ReadBits(2)
		bsid, _ := r.ReadBits(5)
		bsmod, _ := r.ReadBits(5)
		acmod, _ := r.ReadBits(3)
		lfeon, _ := r.ReadBits(1)
		if _, err := r.ReadBits(3); err != nil { // reserved
			return fmt.Errorf("dec3 substream %d: %w", i, ErrInvalidData)
		}
		numDepSub, err := r.ReadBits(4)
		if err != nil {
			return fmt.Errorf("dec3 substream %d: %w", i, ErrInvalidData)
		}
		s.Fscod, s.Bsid, s.Bsmod, s.Acmod = uint8(fscod), uint8(bsid), uint8(bsmod), uint8(acmod)
		s.Lfeon = lfeon != 0
		s.NumDepSub = uint8(numDepSub)
		if s.NumDepSub > 0 {
			chanLoc, err := r.ReadBits(9)
			if err != nil {
				return fmt.Errorf("dec3 substream %d chan_loc: %w", i, ErrInvalidData)
			}
			s.ChanLoc = uint16(chanLoc)
		} else if _, err := r.ReadBits(1); err != nil { // reserved
			return fmt.Errorf("dec3 substream %d: %w", i, ErrInvalidData)
		}
		d.Substreams = append(d.Substreams, s)
	}
	box.Dec3 = d
	return nil
}

func encodeDec3(box *Box, buf []byte, offset int) int {
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	d := box.Dec3
	w.WriteBits(uint64(d.DataRate), 13)
	w.WriteBits(uint64(len(d.Substreams)-1), 3)
	for _, s := range d.Substreams {
		w.WriteBits(uint64(s.Fscod), 2)
		w.WriteBits(uint64(s.Bsid), 5)
		w.WriteBits(uint64(s.Bsmod), 5)
		w.WriteBits(uint64(s.Acmod), 3)
		w.WriteBool(s.Lfeon)
		w.WriteBits(0, 3) // reserved
		w.WriteBits(uint64(s.NumDepSub), 4)
		if s.NumDepSub > 0 {
			w.WriteBits(uint64(s.ChanLoc), 9)
		} else {
			w.WriteBits(0, 1) // reserved
		}
	}
	w.Close()
	copy(buf[offset:], bb.Bytes())
	return bb.Len()
}

func encodingLengthDec3(box *Box) int {
	bits := 16
	for _, s := range box.Dec3.Substreams {
		bits += 23
		if s.NumDepSub > 0 {
			bits += 9
		} else {
			bits += 1
		}
	}
	return (bits + 7) / 8
}

var eac3AudioBlockTable = [4]uint8{1, 2, 3, 6}

// eac3FrameHeader is one decoded E-AC-3 syncframe header (ETSI TS 102 366
// Annex E §E.1.2.1), before it is folded into a Dec3Substream.
type eac3FrameHeader struct {
	independent  bool
	substreamID  uint8
	frameSize    int // bytes
	audioBlocks  uint8
	sub          Dec3Substream
}

func parseEAC3FrameHeader(data []byte) (eac3FrameHeader, error) {
	var h eac3FrameHeader
	if len(data) < 2 || be.Uint16(data[0:2]) != 0x0B77 {
		return h, fmt.Errorf("eac3 syncword not found: %w", ErrInvalidData)
	}
	r := bitio.NewReader(bytes.NewReader(data[2:]))
	readBits := func(n uint8) (uint64, error) {
		v, err := r.ReadBits(n)
		if err != nil {
			return 0, fmt.Errorf("eac3 frame header: %w", ErrInvalidData)
		}
		return v, nil
	}

	strmtyp, err := readBits(2)
	if err != nil {
		return h, err
	}
	if strmtyp == 3 {
		return h, fmt.Errorf("eac3 strmtyp reserved: %w", ErrInvalidData)
	}
	substreamID, err := readBits(3)
	if err != nil {
		return h, err
	}
	frmsiz, err := readBits(11)
	if err != nil {
		return h, err
	}
	fscod, err := readBits(2)
	if err != nil {
		return h, err
	}

	var audioBlocks uint8
	if fscod == 3 {
		if _, err := readBits(2); err != nil { // fscod2
			return h, err
		}
		audioBlocks = 6
	} else {
		numblkscod, err := readBits(2)
		if err != nil {
			return h, err
		}
		audioBlocks = eac3AudioBlockTable[numblkscod]
	}

	acmod, err := readBits(3)
	if err != nil {
		return h, err
	}
	lfeon, err := readBits(1)
	if err != nil {
		return h, err
	}
	bsid, err := readBits(5)
	if err != nil {
		return h, err
	}
	if bsid < 10 || bsid > 16 {
		return h, fmt.Errorf("eac3 bsid out of range: %w", ErrInvalidData)
	}

	h.independent = strmtyp != 1
	h.substreamID = uint8(substreamID)
	h.frameSize = 2 * (int(frmsiz) + 1)
	h.audioBlocks = audioBlocks
	h.sub = Dec3Substream{
		Fscod: uint8(fscod),
		Bsid:  uint8(bsid),
		Acmod: uint8(acmod),
		Lfeon: lfeon != 0,
	}
	return h, nil
}

// ParseEAC3AccessUnit parses a raw E-AC-3 elementary stream buffer starting
// at an access unit boundary and recovers the substream description needed
// to build a Dec3 box. An access unit begins at an independent substream
// with substream_id 0 and accumulates audio blocks, drawn only from
// independent substream frames, until six have been seen; any dependent
// substream frames encountered along the way are counted in the preceding
// independent substream's NumDepSub; ChanLoc is left at zero.
func ParseEAC3AccessUnit(data []byte) (*Dec3, error) {
	first, err := parseEAC3FrameHeader(data)
	if err != nil {
		return nil, err
	}
	if !first.independent || first.substreamID != 0 {
		return nil, fmt.Errorf("eac3 access unit must start at independent substream 0: %w", ErrInvalidData)
	}

	d := &Dec3{}
	var blocks uint8
	pos := 0
	var cur *Dec3Substream

	for pos < len(data) && blocks < 6 {
		h, err := parseEAC3FrameHeader(data[pos:])
		if err != nil {
			return nil, err
		}
		if h.independent {
			d.Substreams = append(d.Substreams, h.sub)
			cur = &d.Substreams[len(d.Substreams)-1]
			blocks += h.audioBlocks
		} else {
			if cur == nil {
				return nil, fmt.Errorf("eac3 dependent substream before any independent substream: %w", ErrInvalidData)
			}
			// Dependent substream frames carry a chanmap, not acmod/lfeon;
			// parseEAC3FrameHeader reads the same bit positions regardless, so
			// only the dependency count (not ChanLoc) is trustworthy here.
			cur.NumDepSub++
		}
		pos += h.frameSize
	}

	return d, nil
}

func init() {
	codecs[TypeDec3] = &codec{decodeDec3, encodeDec3, encodingLengthDec3}
}
