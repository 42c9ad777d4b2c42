package mp4

import "fmt"

// Reader walks a flat slice of sibling boxes without allocating a Box tree.
// Next advances to the next sibling; Enter/Exit descend into and back out
// of a container box's children. It is the zero-allocation counterpart to
// Decode, meant for callers that only need to skim a structure (the CLI
// dumper, benchmarks) rather than build a mutable tree.
type Reader struct {
	buf   []byte
	pos   int
	limit int
	stack []frame

	curStart     int
	curHeaderLen int
	curType      BoxType
	curSize      uint64
	curVersion   uint8
	curFlags     uint32
	curBodyStart int
	curBodyEnd   int

	err error
}

type frame struct {
	pos   int
	limit int
}

// NewReader returns a Reader over the top-level boxes in buf.
func NewReader(buf []byte) Reader {
	return Reader{buf: buf, pos: 0, limit: len(buf)}
}

// Err reports the first parse error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Next advances to the next sibling box at the current level. It returns
// false at the end of the level or on a parse error (check Err).
func (r *Reader) Next() bool {
	if r.err != nil || r.pos >= r.limit {
		return false
	}
	buf := r.buf
	start := r.pos
	if r.limit-start < 8 {
		r.err = fmt.Errorf("box header truncated: %w", ErrInvalidData)
		return false
	}
	size := uint64(be.Uint32(buf[start : start+4]))
	var t BoxType
	copy(t[:], buf[start+4:start+8])

	headerLen := 8
	switch size {
	case 1:
		if r.limit-start < 16 {
			r.err = fmt.Errorf("largesize truncated: %w", ErrInvalidData)
			return false
		}
		size = be.Uint64(buf[start+8 : start+16])
		headerLen = 16
	case 0:
		size = uint64(r.limit - start)
	}
	if t == TypeUUID {
		headerLen += 16
	}

	bodyStart := start + headerLen
	bodyEnd := start + int(size)
	if bodyEnd > r.limit || bodyEnd < bodyStart {
		r.err = fmt.Errorf("box %s size out of range: %w", t, ErrInvalidData)
		return false
	}

	var version uint8
	var flags uint32
	if IsFullBox(t) {
		if bodyEnd-bodyStart < 4 {
			r.err = fmt.Errorf("fullbox %s header truncated: %w", t, ErrInvalidData)
			return false
		}
		version = buf[bodyStart]
		flags = be.Uint32(buf[bodyStart:bodyStart+4]) & 0x00FFFFFF
		bodyStart += 4
	}

	r.curStart = start
	r.curHeaderLen = headerLen
	r.curType = t
	r.curSize = size
	r.curVersion = version
	r.curFlags = flags
	r.curBodyStart = bodyStart
	r.curBodyEnd = bodyEnd

	r.pos = bodyEnd
	return true
}

// Enter descends into the children of the box last returned by Next.
func (r *Reader) Enter() {
	r.stack = append(r.stack, frame{pos: r.pos, limit: r.limit})
	r.pos = r.curBodyStart
	r.limit = r.curBodyEnd
}

// Exit returns to the level Enter was last called from.
func (r *Reader) Exit() {
	n := len(r.stack) - 1
	f := r.stack[n]
	r.stack = r.stack[:n]
	r.pos = f.pos
	r.limit = f.limit
}

// Skip advances n raw bytes within the current level, for non-box preambles
// (stsd's entry count, a sample entry's fixed header before its children).
func (r *Reader) Skip(n int) { r.pos += n }

// Type returns the fourcc of the box last returned by Next.
func (r *Reader) Type() BoxType { return r.curType }

// Size returns the total encoded size (header included) of the current box.
func (r *Reader) Size() uint64 { return r.curSize }

// Version returns the fullbox version of the current box, 0 if it is not a fullbox.
func (r *Reader) Version() uint8 { return r.curVersion }

// Flags returns the fullbox flags of the current box, 0 if it is not a fullbox.
func (r *Reader) Flags() uint32 { return r.curFlags }

// Data returns the current box's body, version/flags header (if any) excluded.
func (r *Reader) Data() []byte { return r.buf[r.curBodyStart:r.curBodyEnd] }

// RawBox returns the current box's full encoded bytes, header included.
func (r *Reader) RawBox() []byte { return r.buf[r.curStart:r.curBodyEnd] }

// EntryCount reads the first 4 bytes of the current box's body as a
// big-endian entry count (stsd, dref).
func (r *Reader) EntryCount() uint32 { return be.Uint32(r.Data()[0:4]) }

// ReadMvhd reads the movie header's timescale, duration, and next-track-id
// fields, handling both the 32-bit (version 0) and 64-bit (version 1) wire
// layouts.
func (r *Reader) ReadMvhd() (timescale uint32, duration uint64, nextTrackId uint32) {
	b := r.Data()
	if r.curVersion == 1 {
		timescale = be.Uint32(b[16:20])
		duration = be.Uint64(b[20:28])
		nextTrackId = be.Uint32(b[108:112])
		return
	}
	timescale = be.Uint32(b[8:12])
	duration = uint64(be.Uint32(b[12:16]))
	nextTrackId = be.Uint32(b[92:96])
	return
}

// ReadTkhd reads the track header's id, duration, and fixed-point
// width/height (caller shifts >>16 for the integer part).
func (r *Reader) ReadTkhd() (trackId uint32, duration uint64, width, height uint32) {
	b := r.Data()
	if r.curVersion == 1 {
		trackId = be.Uint32(b[16:20])
		duration = be.Uint64(b[24:32])
		width = be.Uint32(b[84:88])
		height = be.Uint32(b[88:92])
		return
	}
	trackId = be.Uint32(b[8:12])
	duration = uint64(be.Uint32(b[16:20]))
	width = be.Uint32(b[72:76])
	height = be.Uint32(b[76:80])
	return
}

// ReadMdhd reads the media header's timescale, duration, and packed language code.
func (r *Reader) ReadMdhd() (timescale uint32, duration uint64, language uint16) {
	b := r.Data()
	if r.curVersion == 1 {
		timescale = be.Uint32(b[16:20])
		duration = be.Uint64(b[20:28])
		language = be.Uint16(b[28:30])
		return
	}
	timescale = be.Uint32(b[8:12])
	duration = uint64(be.Uint32(b[12:16]))
	language = be.Uint16(b[16:18])
	return
}

// ReadHdlr reads the handler type fourcc of a handler reference box.
func (r *Reader) ReadHdlr() (handlerType [4]byte) {
	copy(handlerType[:], r.Data()[4:8])
	return
}

// ReadHdlrName reads the NUL-terminated component name that follows a
// handler reference box's reserved fields.
func (r *Reader) ReadHdlrName() string {
	b := r.Data()
	return readString(b, 20, len(b))
}

// ReadMehd reads the movie extends header's fragment duration.
func (r *Reader) ReadMehd() uint32 { return be.Uint32(r.Data()) }

// ReadTrex reads the track extends box's default sample parameters.
func (r *Reader) ReadTrex() (trackId, defaultSampleDescriptionIndex, defaultSampleDuration, defaultSampleSize, defaultSampleFlags uint32) {
	b := r.Data()
	trackId = be.Uint32(b[0:4])
	defaultSampleDescriptionIndex = be.Uint32(b[4:8])
	defaultSampleDuration = be.Uint32(b[8:12])
	defaultSampleSize = be.Uint32(b[12:16])
	defaultSampleFlags = be.Uint32(b[16:20])
	return
}

// ReadMfhd reads the movie fragment header's sequence number.
func (r *Reader) ReadMfhd() uint32 { return be.Uint32(r.Data()) }

// ReadTfhd reads the track fragment header's track id.
func (r *Reader) ReadTfhd() uint32 { return be.Uint32(r.Data()) }

// ReadTfhdOptional reads tfhd's fields beyond track id, each present only
// if its bit is set in flags (the TfhdBaseDataOffsetPresent family); a field
// whose bit is unset returns zero and the caller falls back to trex.
func (r *Reader) ReadTfhdOptional(flags uint32) (baseDataOffset uint64, sampleDescriptionIndex, defaultSampleDuration, defaultSampleSize, defaultSampleFlags uint32) {
	b := r.Data()
	ptr := 4
	if flags&TfhdBaseDataOffsetPresent != 0 {
		baseDataOffset = be.Uint64(b[ptr:])
		ptr += 8
	}
	if flags&TfhdSampleDescriptionIndexPresent != 0 {
		sampleDescriptionIndex = be.Uint32(b[ptr:])
		ptr += 4
	}
	if flags&TfhdDefaultSampleDurationPresent != 0 {
		defaultSampleDuration = be.Uint32(b[ptr:])
		ptr += 4
	}
	if flags&TfhdDefaultSampleSizePresent != 0 {
		defaultSampleSize = be.Uint32(b[ptr:])
		ptr += 4
	}
	if flags&TfhdDefaultSampleFlagsPresent != 0 {
		defaultSampleFlags = be.Uint32(b[ptr:])
	}
	return
}

// ReadTfdt reads the track fragment decode time, widening the version-0
// 32-bit wire field to 64 bits.
func (r *Reader) ReadTfdt() uint64 {
	b := r.Data()
	if r.curVersion == 1 {
		return be.Uint64(b)
	}
	return uint64(be.Uint32(b))
}

// FtypInfo is the parsed body of a file type box.
type FtypInfo struct {
	MajorBrand   [4]byte
	MinorVersion uint32
	Compatible   [][4]byte
}

// ReadFtyp parses a file type (or segment type) box body.
func ReadFtyp(buf []byte) FtypInfo {
	f := FtypInfo{}
	if len(buf) < 8 {
		return f
	}
	copy(f.MajorBrand[:], buf[0:4])
	f.MinorVersion = be.Uint32(buf[4:8])
	for i := 8; i+4 <= len(buf); i += 4 {
		var brand [4]byte
		copy(brand[:], buf[i:i+4])
		f.Compatible = append(f.Compatible, brand)
	}
	return f
}

// VisualEntryInfo is the parsed fixed header of a visual sample entry.
type VisualEntryInfo struct {
	DataReferenceIndex uint16
	Width, Height      uint16
	CompressorName     string
	ChildOffset        int
}

// ReadVisualSampleEntry parses the fixed 78-byte header of a visual sample
// entry (avc1 and similar). ChildOffset is the byte offset its child boxes
// (avcC, pasp, btrt, ...) start at.
func ReadVisualSampleEntry(data []byte) VisualEntryInfo {
	v := VisualEntryInfo{ChildOffset: 78}
	if len(data) < 78 {
		return v
	}
	v.DataReferenceIndex = be.Uint16(data[6:8])
	v.Width = be.Uint16(data[24:26])
	v.Height = be.Uint16(data[26:28])
	nameLen := int(data[42])
	if nameLen > 31 {
		nameLen = 31
	}
	if 43+nameLen <= len(data) {
		v.CompressorName = string(data[43 : 43+nameLen])
	}
	return v
}

// AudioEntryInfo is the parsed fixed header of an audio sample entry.
type AudioEntryInfo struct {
	DataReferenceIndex uint16
	ChannelCount       uint16
	SampleSize         uint16
	SampleRate         uint32 // raw 16.16 fixed-point
	ChildOffset        int
}

// ReadAudioSampleEntry parses the fixed 28-byte header of an audio sample
// entry (mp4a and similar). ChildOffset is the byte offset its child boxes
// (esds and similar) start at.
func ReadAudioSampleEntry(data []byte) AudioEntryInfo {
	a := AudioEntryInfo{ChildOffset: 28}
	if len(data) < 28 {
		return a
	}
	a.DataReferenceIndex = be.Uint16(data[6:8])
	a.ChannelCount = be.Uint16(data[16:18])
	a.SampleSize = be.Uint16(data[18:20])
	a.SampleRate = be.Uint32(data[24:28])
	return a
}

// ReadAvcC returns the short codec string (profile, compatibility,
// level as hex) from an AVC decoder configuration record.
func ReadAvcC(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	return fmt.Sprintf("%02x%02x%02x", data[1], data[2], data[3])
}

// ReadEsdsCodec returns the object-type-indication (and, for audio, the
// MPEG-4 audio object type) codec string from an ES descriptor box.
func ReadEsdsCodec(data []byte) string {
	return esdsCodecString(data)
}

// ReadDac3 parses an AC-3SpecificBox (dac3) body.
func ReadDac3(data []byte) (*Dac3, error) {
	var box Box
	if err := decodeDac3(&box, data, 0, len(data)); err != nil {
		return nil, err
	}
	return box.Dac3, nil
}

// ReadDec3 parses an EC3SpecificBox (dec3) body.
func ReadDec3(data []byte) (*Dec3, error) {
	var box Box
	if err := decodeDec3(&box, data, 0, len(data)); err != nil {
		return nil, err
	}
	return box.Dec3, nil
}

// ReadDdts parses a DTSSpecificBox (ddts) body.
func ReadDdts(data []byte) (*Ddts, error) {
	var box Box
	if err := decodeDdts(&box, data, 0, len(data)); err != nil {
		return nil, err
	}
	return box.Ddts, nil
}

// ReadChpl parses a QTFF chapter list (chpl) body.
func ReadChpl(data []byte) *Chpl {
	var box Box
	decodeChpl(&box, data, 0, len(data))
	return box.Chpl
}

// ReadKeys parses an iTunes metadata key table (keys) body.
func ReadKeys(data []byte) *Keys {
	var box Box
	decodeKeys(&box, data, 0, len(data))
	return box.Keys
}

// ReadMean parses a freeform metadata namespace (mean) body.
func ReadMean(data []byte) *Mean {
	var box Box
	decodeMean(&box, data, 0, len(data))
	return box.Mean
}

// ReadName parses a freeform metadata key-name (name) body.
func ReadName(data []byte) *Name {
	var box Box
	decodeName(&box, data, 0, len(data))
	return box.Name
}

// ReadData parses an iTunes metadata value (data) body.
func ReadData(data []byte) *Data {
	var box Box
	decodeData(&box, data, 0, len(data))
	return box.Data
}

// ReadTfra parses a track fragment random access (tfra) body. version is
// the box's fullbox version (0 or 1), which selects 32- or 64-bit Time/
// MoofOffset wire fields.
func ReadTfra(data []byte, version uint8) *Tfra {
	box := Box{Version: version}
	decodeTfra(&box, data, 0, len(data))
	return box.Tfra
}

// ReadMfro parses a movie fragment random access offset (mfro) body.
func ReadMfro(data []byte) *Mfro {
	var box Box
	decodeMfro(&box, data, 0, len(data))
	return box.Mfro
}

// --- raw entry-count iterators ---
//
// These mirror codec.go's decode*/Box-tree path but walk buf directly,
// for callers (the CLI dumper, benchmarks) that only need counts or a
// single pass with no tree allocation.

// StszIter iterates sample sizes from a raw stsz body.
type StszIter struct {
	buf        []byte
	sampleSize uint32
	count      uint32
	i          uint32
}

// NewStszIter returns an iterator over a raw stsz box body.
func NewStszIter(data []byte) StszIter {
	if len(data) < 8 {
		return StszIter{}
	}
	return StszIter{buf: data, sampleSize: be.Uint32(data[0:4]), count: be.Uint32(data[4:8])}
}

// Count returns the number of samples.
func (it *StszIter) Count() uint32 { return it.count }

// Next returns the next sample size, or false once exhausted.
func (it *StszIter) Next() (uint32, bool) {
	if it.i >= it.count {
		return 0, false
	}
	var size uint32
	if it.sampleSize != 0 {
		size = it.sampleSize
	} else {
		size = be.Uint32(it.buf[8+it.i*4:])
	}
	it.i++
	return size, true
}

// Uint32Iter iterates a raw count+uint32[] body (stco, stss).
type Uint32Iter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewUint32Iter returns an iterator over a raw stco/stss box body.
func NewUint32Iter(data []byte) Uint32Iter {
	if len(data) < 4 {
		return Uint32Iter{}
	}
	return Uint32Iter{buf: data, count: be.Uint32(data[0:4])}
}

func (it *Uint32Iter) Count() uint32 { return it.count }

func (it *Uint32Iter) Next() (uint32, bool) {
	if it.i >= it.count {
		return 0, false
	}
	v := be.Uint32(it.buf[4+it.i*4:])
	it.i++
	return v, true
}

// Co64Iter iterates a raw co64 body.
type Co64Iter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewCo64Iter returns an iterator over a raw co64 box body.
func NewCo64Iter(data []byte) Co64Iter {
	if len(data) < 4 {
		return Co64Iter{}
	}
	return Co64Iter{buf: data, count: be.Uint32(data[0:4])}
}

func (it *Co64Iter) Count() uint32 { return it.count }

func (it *Co64Iter) Next() (uint64, bool) {
	if it.i >= it.count {
		return 0, false
	}
	v := be.Uint64(it.buf[4+it.i*8:])
	it.i++
	return v, true
}

// SttsIter iterates a raw stts body.
type SttsIter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewSttsIter returns an iterator over a raw stts box body.
func NewSttsIter(data []byte) SttsIter {
	if len(data) < 4 {
		return SttsIter{}
	}
	return SttsIter{buf: data, count: be.Uint32(data[0:4])}
}

func (it *SttsIter) Count() uint32 { return it.count }

func (it *SttsIter) Next() (count, duration uint32, ok bool) {
	if it.i >= it.count {
		return 0, 0, false
	}
	ptr := 4 + it.i*8
	count = be.Uint32(it.buf[ptr:])
	duration = be.Uint32(it.buf[ptr+4:])
	it.i++
	return count, duration, true
}

// CttsIter iterates a raw ctts body, version-aware for the signed offset.
type CttsIter struct {
	buf     []byte
	count   uint32
	version uint8
	i       uint32
}

// NewCttsIter returns an iterator over a raw ctts box body.
func NewCttsIter(data []byte, version uint8) CttsIter {
	if len(data) < 4 {
		return CttsIter{}
	}
	return CttsIter{buf: data, count: be.Uint32(data[0:4]), version: version}
}

func (it *CttsIter) Count() uint32 { return it.count }

func (it *CttsIter) Next() (count uint32, offset int32, ok bool) {
	if it.i >= it.count {
		return 0, 0, false
	}
	ptr := 4 + it.i*8
	count = be.Uint32(it.buf[ptr:])
	offset = int32(be.Uint32(it.buf[ptr+4:]))
	it.i++
	return count, offset, true
}

// StscIter iterates a raw stsc body.
type StscIter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewStscIter returns an iterator over a raw stsc box body.
func NewStscIter(data []byte) StscIter {
	if len(data) < 4 {
		return StscIter{}
	}
	return StscIter{buf: data, count: be.Uint32(data[0:4])}
}

func (it *StscIter) Count() uint32 { return it.count }

func (it *StscIter) Next() (firstChunk, samplesPerChunk, sampleDescriptionId uint32, ok bool) {
	if it.i >= it.count {
		return 0, 0, 0, false
	}
	ptr := 4 + it.i*12
	firstChunk = be.Uint32(it.buf[ptr:])
	samplesPerChunk = be.Uint32(it.buf[ptr+4:])
	sampleDescriptionId = be.Uint32(it.buf[ptr+8:])
	it.i++
	return firstChunk, samplesPerChunk, sampleDescriptionId, true
}

// ElstIter iterates a raw elst body, version-aware for 32-/64-bit fields.
type ElstIter struct {
	buf     []byte
	count   uint32
	version uint8
	i       uint32
}

// NewElstIter returns an iterator over a raw elst box body.
func NewElstIter(data []byte, version uint8) ElstIter {
	if len(data) < 4 {
		return ElstIter{}
	}
	return ElstIter{buf: data, count: be.Uint32(data[0:4]), version: version}
}

func (it *ElstIter) Count() uint32 { return it.count }

func (it *ElstIter) Next() (trackDuration uint64, mediaTime int64, mediaRate int32, ok bool) {
	if it.i >= it.count {
		return 0, 0, 0, false
	}
	if it.version == 1 {
		ptr := 4 + it.i*20
		trackDuration = be.Uint64(it.buf[ptr:])
		mediaTime = int64(be.Uint64(it.buf[ptr+8:]))
		mediaRate = int32(be.Uint32(it.buf[ptr+16:]))
	} else {
		ptr := 4 + it.i*12
		trackDuration = uint64(be.Uint32(it.buf[ptr:]))
		mediaTime = int64(int32(be.Uint32(it.buf[ptr+4:])))
		mediaRate = int32(be.Uint32(it.buf[ptr+8:]))
	}
	it.i++
	return trackDuration, mediaTime, mediaRate, true
}

// TrunIter iterates a raw trun body according to its presence flags.
type TrunIter struct {
	buf        []byte
	flags      uint32
	count      uint32
	dataOffset int32
	firstFlags uint32
	entryLen   int
	entryStart int
	i          uint32
}

// NewTrunIter returns an iterator over a raw trun box body.
func NewTrunIter(data []byte, flags uint32) TrunIter {
	if len(data) < 4 {
		return TrunIter{}
	}
	it := TrunIter{buf: data, flags: flags, count: be.Uint32(data[0:4])}
	ptr := 4
	if flags&TrunDataOffsetPresent != 0 {
		it.dataOffset = int32(be.Uint32(data[ptr:]))
		ptr += 4
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		it.firstFlags = be.Uint32(data[ptr:])
		ptr += 4
	}
	it.entryStart = ptr
	if flags&TrunSampleDurationPresent != 0 {
		it.entryLen += 4
	}
	if flags&TrunSampleSizePresent != 0 {
		it.entryLen += 4
	}
	if flags&TrunSampleFlagsPresent != 0 {
		it.entryLen += 4
	}
	if flags&TrunSampleCompositionTimeOffsetsPresent != 0 {
		it.entryLen += 4
	}
	return it
}

func (it *TrunIter) Count() uint32 { return it.count }

// DataOffset returns the trun's data-offset field. Only meaningful if
// NewTrunIter's flags had TrunDataOffsetPresent set.
func (it *TrunIter) DataOffset() int32 { return it.dataOffset }

// FirstSampleFlags returns the trun's first-sample-flags field, which
// overrides the default sample flags for entry 0 only. Only meaningful if
// NewTrunIter's flags had TrunFirstSampleFlagsPresent set.
func (it *TrunIter) FirstSampleFlags() uint32 { return it.firstFlags }

func (it *TrunIter) Next() (entry TrunEntry, ok bool) {
	if it.i >= it.count {
		return TrunEntry{}, false
	}
	ptr := it.entryStart + int(it.i)*it.entryLen
	if it.flags&TrunSampleDurationPresent != 0 {
		entry.SampleDuration = be.Uint32(it.buf[ptr:])
		ptr += 4
	}
	if it.flags&TrunSampleSizePresent != 0 {
		entry.SampleSize = be.Uint32(it.buf[ptr:])
		ptr += 4
	}
	if it.flags&TrunSampleFlagsPresent != 0 {
		entry.SampleFlags = be.Uint32(it.buf[ptr:])
		ptr += 4
	}
	if it.flags&TrunSampleCompositionTimeOffsetsPresent != 0 {
		entry.SampleCompositionTimeOffset = int32(be.Uint32(it.buf[ptr:]))
	}
	it.i++
	return entry, true
}

// SdtpIter iterates the per-sample dependency byte of a raw sdtp body. sdtp
// carries no internal count field; the caller supplies the track's sample
// count (from stsz).
type SdtpIter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewSdtpIter returns an iterator over a raw sdtp box body.
func NewSdtpIter(data []byte, sampleCount uint32) SdtpIter {
	return SdtpIter{buf: data, count: sampleCount}
}

func (it *SdtpIter) Count() uint32 { return it.count }

// Next returns the next sample's dependency flags, packed per ISO/IEC
// 14496-12 as isLeading(2)/dependsOn(2)/isDependedOn(2)/hasRedundancy(2).
func (it *SdtpIter) Next() (isLeading, dependsOn, isDependedOn, hasRedundancy uint8, ok bool) {
	if it.i >= it.count || int(it.i) >= len(it.buf) {
		return 0, 0, 0, 0, false
	}
	b := it.buf[it.i]
	it.i++
	return (b >> 6) & 0x3, (b >> 4) & 0x3, (b >> 2) & 0x3, b & 0x3, true
}

// SbgpIter iterates a raw sbgp body.
type SbgpIter struct {
	buf   []byte
	count uint32
	i     uint32
}

// NewSbgpIter returns the grouping type and an iterator over a raw sbgp box
// body, skipping the version-1 grouping_type_parameter field.
func NewSbgpIter(data []byte, version uint8) (groupingType [4]byte, it SbgpIter) {
	if len(data) < 8 {
		return groupingType, SbgpIter{}
	}
	copy(groupingType[:], data[0:4])
	ptr := 4
	if version == 1 {
		ptr = 8
	}
	if len(data) < ptr+4 {
		return groupingType, SbgpIter{}
	}
	count := be.Uint32(data[ptr:])
	return groupingType, SbgpIter{buf: data[ptr+4:], count: count}
}

func (it *SbgpIter) Count() uint32 { return it.count }

func (it *SbgpIter) Next() (sampleCount, groupDescriptionIndex uint32, ok bool) {
	if it.i >= it.count {
		return 0, 0, false
	}
	ptr := it.i * 8
	sampleCount = be.Uint32(it.buf[ptr:])
	groupDescriptionIndex = be.Uint32(it.buf[ptr+4:])
	it.i++
	return sampleCount, groupDescriptionIndex, true
}

// SgpdIter iterates a raw sgpd body, version-aware for the default-length
// and per-entry length fields.
type SgpdIter struct {
	buf           []byte
	count         uint32
	defaultLength uint32
	version       uint8
	i             uint32
	pos           int
}

// NewSgpdIter returns the grouping type, the version-1 default entry
// length, and an iterator over a raw sgpd box body.
func NewSgpdIter(data []byte, version uint8) (groupingType [4]byte, defaultLength uint32, it SgpdIter) {
	if len(data) < 8 {
		return groupingType, 0, SgpdIter{}
	}
	copy(groupingType[:], data[0:4])
	ptr := 4
	if version == 1 {
		defaultLength = be.Uint32(data[4:8])
		ptr = 8
	}
	if len(data) < ptr+4 {
		return groupingType, defaultLength, SgpdIter{}
	}
	count := be.Uint32(data[ptr:])
	return groupingType, defaultLength, SgpdIter{buf: data[ptr+4:], count: count, defaultLength: defaultLength, version: version}
}

func (it *SgpdIter) Count() uint32 { return it.count }

// Next returns the next entry's raw group-specific payload (e.g. a 1-byte
// is_rap/num_leading_samples pair for "rap ", or a 2-byte roll_distance for
// "roll").
func (it *SgpdIter) Next() (payload []byte, ok bool) {
	if it.i >= it.count {
		return nil, false
	}
	length := int(it.defaultLength)
	if it.version >= 2 {
		if it.pos+4 > len(it.buf) {
			return nil, false
		}
		length = int(be.Uint32(it.buf[it.pos:]))
		it.pos += 4
	}
	if it.pos+length > len(it.buf) {
		return nil, false
	}
	payload = it.buf[it.pos : it.pos+length]
	it.pos += length
	it.i++
	return payload, true
}
