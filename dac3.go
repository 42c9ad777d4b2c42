package mp4

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Dac3 is the AC-3SpecificBox (dac3), ETSI TS 102 366 Annex F.
type Dac3 struct {
	Fscod       uint8
	Bsid        uint8
	Bsmod       uint8
	Acmod       uint8
	Lfeon       bool
	BitRateCode uint8
}

var ac3SampleRateTable = [4]uint32{48000, 44100, 32000, 0}

// SampleRate returns the AC-3 sampling rate in Hz, or 0 if Fscod is reserved.
func (d *Dac3) SampleRate() uint32 {
	if d.Fscod > 3 {
		return 0
	}
	return ac3SampleRateTable[d.Fscod]
}

func decodeDac3(box *Box, buf []byte, start, end int) error {
	if end-start < 3 {
		return fmt.Errorf("dac3 box too small: %w", ErrInvalidData)
	}
	r := bitio.NewReader(bytes.NewReader(buf[start:end]))
	d := &Dac3{}
	fscod, _ := r.ReadBits(2)
	bsid, _ := r.ReadBits(5)
	bsmod, _ := r.ReadBits(3)
	acmod, _ := r.ReadBits(3)
	lfeon, _ := r.ReadBits(1)
	bitRateCode, err := r.ReadBits(5)
	if err != nil {
		return fmt.Errorf("dac3 body: %w", ErrInvalidData)
	}
	d.Fscod = uint8(fscod)
	d.Bsid = uint8(bsid)
	d.Bsmod = uint8(bsmod)
	d.Acmod = uint8(acmod)
	d.Lfeon = lfeon != 0
	d.BitRateCode = uint8(bitRateCode)
	box.Dac3 = d
	return nil
}

func encodeDac3(box *Box, buf []byte, offset int) int {
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	d := box.Dac3
	w.WriteBits(uint64(d.Fscod), 2)
	w.WriteBits(uint64(d.Bsid), 5)
	w.WriteBits(uint64(d.Bsmod), 3)
	w.WriteBits(uint64(d.Acmod), 3)
	w.WriteBool(d.Lfeon)
	w.WriteBits(uint64(d.BitRateCode), 5)
	w.WriteBits(0, 5) // reserved
	w.Close()
	copy(buf[offset:], bb.Bytes())
	return bb.Len()
}

func encodingLengthDac3(box *Box) int {
	return 3
}

const ac3SyncInfoLen = 16 + 16 // syncword + crc1

// ParseAC3SyncFrame parses a raw AC-3 elementary stream buffer starting at
// a syncframe (ETSI TS 102 366 §4.4) and recovers the fields needed to
// build a Dac3 box. BitRateCode is frmsizecod>>1, per
// lsmash_create_ac3_specific_info in the reference decoder.
func ParseAC3SyncFrame(data []byte) (*Dac3, error) {
	if len(data) < 2 || be.Uint16(data[0:2]) != 0x0B77 {
		return nil, fmt.Errorf("ac3 syncword not found: %w", ErrInvalidData)
	}
	r := bitio.NewReader(bytes.NewReader(data))
	if _, err := r.ReadBits(ac3SyncInfoLen); err != nil {
		return nil, fmt.Errorf("ac3 syncinfo: %w", ErrInvalidData)
	}

	fscod, err := r.ReadBits(2)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}
	if fscod == 3 {
		return nil, fmt.Errorf("ac3 fscod reserved: %w", ErrInvalidData)
	}
	frmsizecod, err := r.ReadBits(6)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}
	if frmsizecod > 0x25 {
		return nil, fmt.Errorf("ac3 frmsizecod out of range: %w", ErrInvalidData)
	}
	bsid, err := r.ReadBits(5)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}
	if bsid >= 10 {
		return nil, fmt.Errorf("ac3 bsid out of range: %w", ErrInvalidData)
	}
	bsmod, err := r.ReadBits(3)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}
	acmod, err := r.ReadBits(3)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}

	if acmod&0x1 != 0 && acmod != 1 {
		if _, err := r.ReadBits(2); err != nil { // cmixlev
			return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
		}
	}
	if acmod&0x4 != 0 {
		if _, err := r.ReadBits(2); err != nil { // surmixlev
			return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
		}
	}
	if acmod == 2 {
		if _, err := r.ReadBits(2); err != nil { // dsurmod
			return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
		}
	}
	lfeon, err := r.ReadBits(1)
	if err != nil {
		return nil, fmt.Errorf("ac3 bsi: %w", ErrInvalidData)
	}

	return &Dac3{
		Fscod:       uint8(fscod),
		Bsid:        uint8(bsid),
		Bsmod:       uint8(bsmod),
		Acmod:       uint8(acmod),
		Lfeon:       lfeon != 0,
		BitRateCode: uint8(frmsizecod >> 1),
	}, nil
}

func init() {
	codecs[TypeDac3] = &codec{decodeDac3, encodeDac3, encodingLengthDac3}
}
