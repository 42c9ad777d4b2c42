package mp4

// Writer serializes a box tree incrementally: StartBox/EndBox bracket a
// container whose total size isn't known until its children are written
// (size is backpatched on EndBox); the WriteXxx helpers emit a single
// complete leaf box via the same encodeBox machinery Decode's tree uses,
// so the wire layout never drifts from what Decode expects to read back.
type Writer struct {
	buf   []byte
	pos   int
	stack []int
}

// NewWriter returns a Writer that serializes into buf starting at offset 0.
// buf must be large enough to hold everything written; callers size it
// generously and trim with Bytes.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// StartBox writes a container box's placeholder header and pushes it onto
// the backpatch stack. Containers used with StartBox/EndBox are always
// plain (non-uuid, non-fullbox) boxes, an 8-byte header.
func (w *Writer) StartBox(t BoxType) {
	w.stack = append(w.stack, w.pos)
	be.PutUint32(w.buf[w.pos:w.pos+4], 0)
	copy(w.buf[w.pos+4:w.pos+8], t[:])
	w.pos += 8
}

// EndBox closes the most recently started box, backpatching its size.
func (w *Writer) EndBox() {
	n := len(w.stack) - 1
	start := w.stack[n]
	w.stack = w.stack[:n]
	be.PutUint32(w.buf[start:start+4], uint32(w.pos-start))
}

// Bytes returns everything written so far.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) writeBox(box *Box) {
	n, err := encodeBox(box, w.buf, w.pos)
	if err != nil {
		panic(err) // programmer error: caller-built Box is malformed
	}
	w.pos += n
}

var unityMatrix = func() [36]byte {
	var m [36]byte
	be.PutUint32(m[0:4], 0x00010000)
	be.PutUint32(m[16:20], 0x00010000)
	be.PutUint32(m[32:36], 0x40000000)
	return m
}()

// WriteFtyp writes a complete file type box.
func (w *Writer) WriteFtyp(major [4]byte, minorVersion uint32, compatible [][4]byte) {
	w.writeBox(&Box{Type: TypeFtyp, Ftyp: &Ftyp{
		Brand: major, BrandVersion: minorVersion, CompatibleBrands: compatible,
	}})
}

// WriteMvhd writes a complete movie header box with unity preferred rate,
// full preferred volume, and an identity transform matrix.
func (w *Writer) WriteMvhd(timescale, duration, nextTrackID uint32) {
	w.writeBox(&Box{Type: TypeMvhd, Mvhd: &Mvhd{
		TimeScale:       timescale,
		Duration:        duration,
		NextTrackId:     nextTrackID,
		PreferredRate:   [4]byte{0x00, 0x01, 0x00, 0x00},
		PreferredVolume: [2]byte{0x01, 0x00},
		Matrix:          unityMatrix,
	}})
}

// WriteTkhd writes a complete track header box, flags set on the fullbox
// header (TrackEnabled 0x1, TrackInMovie 0x2, TrackInPreview 0x4).
func (w *Writer) WriteTkhd(flags uint32, trackID uint32, duration uint32, width, height uint32) {
	w.writeBox(&Box{Type: TypeTkhd, Flags: flags, Tkhd: &Tkhd{
		TrackId:     trackID,
		Duration:    duration,
		Matrix:      unityMatrix,
		TrackWidth:  width,
		TrackHeight: height,
	}})
}

// WriteMdhd writes a complete media header box.
func (w *Writer) WriteMdhd(timescale, duration uint32, language uint16) {
	w.writeBox(&Box{Type: TypeMdhd, Mdhd: &Mdhd{
		TimeScale: timescale,
		Duration:  uint64(duration),
		Language:  language,
	}})
}

// WriteHdlr writes a complete handler reference box.
func (w *Writer) WriteHdlr(handlerType [4]byte, name string) {
	w.writeBox(&Box{Type: TypeHdlr, Hdlr: &Hdlr{HandlerType: handlerType, Name: name}})
}

// WriteTrex writes a complete track extends box.
func (w *Writer) WriteTrex(trackID, defaultSampleDescriptionIndex, defaultSampleDuration, defaultSampleSize, defaultSampleFlags uint32) {
	w.writeBox(&Box{Type: TypeTrex, Trex: &Trex{
		TrackId:                       trackID,
		DefaultSampleDescriptionIndex: defaultSampleDescriptionIndex,
		DefaultSampleDuration:         defaultSampleDuration,
		DefaultSampleSize:             defaultSampleSize,
		DefaultSampleFlags:            defaultSampleFlags,
	}})
}
