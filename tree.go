package mp4

import (
	"encoding/binary"
	"fmt"
)

// be is the byte order every box field on the wire uses.
var be = binary.BigEndian

// Box is a single parsed node of the box tree. Exactly one of its typed
// fields is non-nil when its type has a registered codec; Children holds
// sub-boxes for container types; Unknown carries the raw payload of any box
// this package does not recognize, so it round-trips byte-for-byte.
type Box struct {
	Type    BoxType
	Ext     ExtendedType // populated only for uuid boxes
	Size    uint64       // total encoded size, header included
	Version uint8        // fullbox version, 0 if not a fullbox
	Flags   uint32       // fullbox flags, 24 bits used
	Parent  *Box

	Children []*Box
	Unknown  []byte

	Ftyp   *Ftyp
	Mvhd   *Mvhd
	Tkhd   *Tkhd
	Mdhd   *Mdhd
	Vmhd   *Vmhd
	Smhd   *Smhd
	Stsd   *Stsd
	Visual *VisualSampleEntry
	AvcC   *AvcC
	Audio  *AudioSampleEntry
	Esds   *Esds
	Stsz   *Stsz
	Stco   *Stco
	Co64   *Co64
	Stts   *Stts
	Ctts   *Ctts
	Cslg   *Cslg
	Stsc   *Stsc
	Dref   *DrefBox
	Elst   *Elst
	Hdlr   *Hdlr
	Sdtp   *Sdtp
	Sbgp   *Sbgp
	Sgpd   *Sgpd
	Chpl   *Chpl
	Keys   *Keys
	Mean   *Mean
	Name   *Name
	Data   *Data
	Mehd   *Mehd
	Trex   *Trex
	Mfhd   *Mfhd
	Tfhd   *Tfhd
	Tfdt   *Tfdt
	Trun   *Trun
	Tfra   *Tfra
	Mfro   *Mfro
	Dac3   *Dac3
	Dec3   *Dec3
	Ddts   *Ddts
	Mdat   *Mdat
}

// IsFullBox reports whether this box carries a version/flags header, using
// its actual parent (resolving the cprt-under-udta exception).
func (b *Box) IsFullBox() bool {
	var parent BoxType
	if b.Parent != nil {
		parent = b.Parent.Type
	}
	return IsFullBoxIn(b.Type, parent)
}

// Decode parses one box from buf[start:end] with no parent context. Most
// callers decoding a box whose parent is irrelevant to its fullbox status
// (sample entries, stsd entries) use this; DecodeIn is used where the
// parent matters (e.g. walking udta's children).
func Decode(buf []byte, start, end int) (*Box, error) {
	return decodeBoxAt(buf, start, end, BoxType{}, nil)
}

// DecodeIn parses one box from buf[start:end] whose container type is
// parent, so the cprt-under-udta fullbox exception resolves correctly.
func DecodeIn(buf []byte, start, end int, parent BoxType) (*Box, error) {
	return decodeBoxAt(buf, start, end, parent, nil)
}

func decodeBoxAt(buf []byte, start, end int, parent BoxType, parentBox *Box) (*Box, error) {
	if end-start < 8 {
		return nil, fmt.Errorf("box header truncated: %w", ErrInvalidData)
	}
	size := uint64(be.Uint32(buf[start : start+4]))
	var t BoxType
	copy(t[:], buf[start+4:start+8])

	headerLen := 8
	switch size {
	case 1:
		if end-start < 16 {
			return nil, fmt.Errorf("largesize truncated: %w", ErrInvalidData)
		}
		size = be.Uint64(buf[start+8 : start+16])
		headerLen = 16
	case 0:
		size = uint64(end - start)
	}

	box := &Box{Type: t, Parent: parentBox}

	if t == TypeUUID {
		if start+headerLen+16 > end {
			return nil, fmt.Errorf("uuid box truncated: %w", ErrInvalidData)
		}
		var id [16]byte
		copy(id[:], buf[start+headerLen:start+headerLen+16])
		box.Ext = UUIDType(id)
		headerLen += 16
	}

	bodyStart := start + headerLen
	bodyEnd := start + int(size)
	if bodyEnd > end || bodyEnd < bodyStart {
		return nil, fmt.Errorf("box %s size out of range: %w", t, ErrInvalidData)
	}
	box.Size = size

	if box.IsFullBox() {
		if bodyEnd-bodyStart < 4 {
			return nil, fmt.Errorf("fullbox %s header truncated: %w", t, ErrInvalidData)
		}
		box.Version = buf[bodyStart]
		box.Flags = be.Uint32(buf[bodyStart:bodyStart+4]) & 0x00FFFFFF
		bodyStart += 4
	}

	if c := getCodec(t); c != nil {
		if err := c.decode(box, buf, bodyStart, bodyEnd); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t, err)
		}
		return box, nil
	}

	if IsContainerBox(t) || parent == TypeIlst {
		ptr := bodyStart
		for ptr < bodyEnd {
			child, err := decodeBoxAt(buf, ptr, bodyEnd, t, box)
			if err != nil {
				return nil, err
			}
			box.Children = append(box.Children, child)
			ptr += int(child.Size)
		}
		return box, nil
	}

	raw := make([]byte, bodyEnd-bodyStart)
	copy(raw, buf[bodyStart:bodyEnd])
	box.Unknown = raw
	return box, nil
}

// encodeBox writes box (header, version/flags, body) into buf at offset and
// returns the number of bytes written. buf must be large enough; callers
// size it with EncodingLength first.
func encodeBox(box *Box, buf []byte, offset int) (int, error) {
	headerLen := 8
	if box.Type == TypeUUID {
		headerLen += 16
	}
	fullLen := 0
	if box.IsFullBox() {
		fullLen = 4
	}

	bodyOffset := offset + headerLen + fullLen
	bodyLen := 0
	var err error

	switch {
	case getCodec(box.Type) != nil:
		bodyLen = getCodec(box.Type).encode(box, buf, bodyOffset)
	case len(box.Children) > 0 || IsContainerBox(box.Type):
		ptr := bodyOffset
		for _, child := range box.Children {
			n, e := encodeBox(child, buf, ptr)
			if e != nil {
				err = e
				break
			}
			ptr += n
		}
		bodyLen = ptr - bodyOffset
	default:
		copy(buf[bodyOffset:], box.Unknown)
		bodyLen = len(box.Unknown)
	}
	if err != nil {
		return 0, err
	}

	total := headerLen + fullLen + bodyLen
	be.PutUint32(buf[offset:offset+4], uint32(total))
	copy(buf[offset+4:offset+8], box.Type[:])
	if box.Type == TypeUUID {
		copy(buf[offset+8:offset+24], box.Ext.UUID[:])
	}
	if fullLen > 0 {
		vf := uint32(box.Version)<<24 | (box.Flags & 0x00FFFFFF)
		be.PutUint32(buf[offset+headerLen:offset+headerLen+4], vf)
	}
	box.Size = uint64(total)
	return total, nil
}

// EncodingLength returns the total encoded size of box, header included.
func EncodingLength(box *Box) uint64 {
	headerLen := 8
	if box.Type == TypeUUID {
		headerLen += 16
	}
	fullLen := 0
	if box.IsFullBox() {
		fullLen = 4
	}

	var bodyLen int
	switch {
	case getCodec(box.Type) != nil:
		bodyLen = getCodec(box.Type).encodingLength(box)
	case len(box.Children) > 0 || IsContainerBox(box.Type):
		for _, child := range box.Children {
			bodyLen += int(EncodingLength(child))
		}
	default:
		bodyLen = len(box.Unknown)
	}
	return uint64(headerLen + fullLen + bodyLen)
}

// EncodeBox serializes box, header and children included, into a freshly
// allocated slice. It is Decode's exported counterpart, for callers that
// build a tree in memory (tests, transcoding tools) rather than parsing one.
func EncodeBox(box *Box) ([]byte, error) {
	buf := make([]byte, EncodingLength(box))
	if _, err := encodeBox(box, buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

// clearBytes zeroes buf[start:end], used to keep reserved/unused fields
// deterministic on encode.
func clearBytes(buf []byte, start, end int) {
	for i := start; i < end; i++ {
		buf[i] = 0
	}
}

// readString reads a NUL-terminated (or range-exhausted) string starting at
// buf[start:end].
func readString(buf []byte, start, end int) string {
	if start >= end || start >= len(buf) {
		return ""
	}
	if end > len(buf) {
		end = len(buf)
	}
	for i := start; i < end; i++ {
		if buf[i] == 0 {
			return string(buf[start:i])
		}
	}
	return string(buf[start:end])
}
