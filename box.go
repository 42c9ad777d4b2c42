// Package mp4 implements encoding and decoding of ISO Base Media File Format
// (ISOBMFF) boxes and their QuickTime File Format (QTFF) sibling.
package mp4

// BoxType is a 4-byte box type identifier (the "fourcc").
type BoxType [4]byte

func (t BoxType) String() string {
	return string(t[:])
}

// ISO12Bytes and QTFF12Bytes are the fixed 12-byte suffixes that, appended to
// a fourcc, form the 16-byte "user" identity of an ISO- or QTFF-flavored box
// (see ExtendedType).
var (
	ISO12Bytes  = [12]byte{0x00, 0x11, 0x00, 0x10, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}
	QTFF12Bytes = [12]byte{0x0F, 0x11, 0x4C, 0x3C, 0x6B, 0x78, 0x11, 0xD3, 0x8A, 0x57, 0x00, 0x60, 0x8F - 0x0A}
)

// TypeUUID is the fourcc that marks an extended (user-UUID) box.
var TypeUUID = BoxType{'u', 'u', 'i', 'd'}

// ExtendedType is the full 20-byte box identity spec'd as (fourcc, user):
// the compact 4-byte code plus an optional 16-byte extended UUID. Two boxes
// with the same fourcc and the same flavor-specific UUID are the same type;
// equality is plain struct equality (20 bytes, byte-exact).
type ExtendedType struct {
	FourCC BoxType
	UUID   [16]byte
}

// ISOType builds the ISO-flavored identity for fourcc: UUID = fourcc ++ ISO12Bytes.
func ISOType(fourcc BoxType) ExtendedType {
	var u [16]byte
	copy(u[0:4], fourcc[:])
	copy(u[4:16], ISO12Bytes[:])
	return ExtendedType{FourCC: fourcc, UUID: u}
}

// QTFFType builds the QTFF-flavored identity for fourcc: UUID = fourcc ++ QTFF12Bytes.
func QTFFType(fourcc BoxType) ExtendedType {
	var u [16]byte
	copy(u[0:4], fourcc[:])
	copy(u[4:16], QTFF12Bytes[:])
	return ExtendedType{FourCC: fourcc, UUID: u}
}

// UUIDType builds a user-UUID box identity: fourcc is always 'uuid', id is
// the caller-supplied 16-byte GUID.
func UUIDType(id [16]byte) ExtendedType {
	return ExtendedType{FourCC: TypeUUID, UUID: id}
}

// IsUnspecified reports whether t is the all-zero sentinel identity.
func (t ExtendedType) IsUnspecified() bool {
	return t.FourCC == BoxType{} && t.UUID == [16]byte{}
}

// Known box types.
var (
	TypeFtyp = BoxType{'f', 't', 'y', 'p'} // File type and compatibility
	TypeStyp = BoxType{'s', 't', 'y', 'p'} // Segment type (fragmented MP4)
)

// Movie structure boxes (moov and children).
var (
	TypeMoov = BoxType{'m', 'o', 'o', 'v'} // Movie metadata container
	TypeMvhd = BoxType{'m', 'v', 'h', 'd'} // Movie header (timescale, duration)
	TypeTrak = BoxType{'t', 'r', 'a', 'k'} // Track container
	TypeTkhd = BoxType{'t', 'k', 'h', 'd'} // Track header (ID, dimensions)
	TypeTref = BoxType{'t', 'r', 'e', 'f'} // Track reference container
	TypeTrgr = BoxType{'t', 'r', 'g', 'r'} // Track grouping indication
	TypeEdts = BoxType{'e', 'd', 't', 's'} // Edit list container
	TypeElst = BoxType{'e', 'l', 's', 't'} // Edit list entries
	TypeMdia = BoxType{'m', 'd', 'i', 'a'} // Media information container
	TypeMdhd = BoxType{'m', 'd', 'h', 'd'} // Media header (timescale, duration)
	TypeHdlr = BoxType{'h', 'd', 'l', 'r'} // Handler reference (vide/soun)
	TypeElng = BoxType{'e', 'l', 'n', 'g'} // Extended language tag
	TypeMinf = BoxType{'m', 'i', 'n', 'f'} // Media information container
	TypeVmhd = BoxType{'v', 'm', 'h', 'd'} // Video media header
	TypeSmhd = BoxType{'s', 'm', 'h', 'd'} // Sound media header
	TypeHmhd = BoxType{'h', 'm', 'h', 'd'} // Hint media header
	TypeSthd = BoxType{'s', 't', 'h', 'd'} // Subtitle media header
	TypeNmhd = BoxType{'n', 'm', 'h', 'd'} // Null media header
	TypeDinf = BoxType{'d', 'i', 'n', 'f'} // Data information container
	TypeDref = BoxType{'d', 'r', 'e', 'f'} // Data reference (URL/URN entries)
)

// Sample table boxes (stbl children).
var (
	TypeStbl = BoxType{'s', 't', 'b', 'l'} // Sample table container
	TypeStsd = BoxType{'s', 't', 's', 'd'} // Sample descriptions (codec config)
	TypeStts = BoxType{'s', 't', 't', 's'} // Decoding time-to-sample
	TypeCtts = BoxType{'c', 't', 't', 's'} // Composition time-to-sample
	TypeCslg = BoxType{'c', 's', 'l', 'g'} // Composition to decode timeline mapping
	TypeStsc = BoxType{'s', 't', 's', 'c'} // Sample-to-chunk mapping
	TypeStsz = BoxType{'s', 't', 's', 'z'} // Sample sizes
	TypeStz2 = BoxType{'s', 't', 'z', '2'} // Compact sample sizes
	TypeStco = BoxType{'s', 't', 'c', 'o'} // Chunk offsets (32-bit)
	TypeCo64 = BoxType{'c', 'o', '6', '4'} // Chunk offsets (64-bit)
	TypeStss = BoxType{'s', 't', 's', 's'} // Sync sample table (keyframes)
	TypeStps = BoxType{'s', 't', 'p', 's'} // Partial sync sample table (QTFF, open-GOP)
	TypeStsh = BoxType{'s', 't', 's', 'h'} // Shadow sync sample table
	TypePadb = BoxType{'p', 'a', 'd', 'b'} // Padding bits
	TypeStdp = BoxType{'s', 't', 'd', 'p'} // Sample degradation priority
	TypeSdtp = BoxType{'s', 'd', 't', 'p'} // Sample dependency type
	TypeSbgp = BoxType{'s', 'b', 'g', 'p'} // Sample-to-group
	TypeSgpd = BoxType{'s', 'g', 'p', 'd'} // Sample group description
	TypeSubs = BoxType{'s', 'u', 'b', 's'} // Sub-sample information
	TypeSaiz = BoxType{'s', 'a', 'i', 'z'} // Sample auxiliary information sizes
	TypeSaio = BoxType{'s', 'a', 'i', 'o'} // Sample auxiliary information offsets
)

// Fragment boxes (moof and children, mvex, mfra).
var (
	TypeMvex = BoxType{'m', 'v', 'e', 'x'} // Movie extends (signals fragmented file)
	TypeMehd = BoxType{'m', 'e', 'h', 'd'} // Movie extends header (fragment duration)
	TypeTrex = BoxType{'t', 'r', 'e', 'x'} // Track extends defaults
	TypeLeva = BoxType{'l', 'e', 'v', 'a'} // Level assignment
	TypeMoof = BoxType{'m', 'o', 'o', 'f'} // Movie fragment container
	TypeMfhd = BoxType{'m', 'f', 'h', 'd'} // Movie fragment header (sequence number)
	TypeTraf = BoxType{'t', 'r', 'a', 'f'} // Track fragment container
	TypeTfhd = BoxType{'t', 'f', 'h', 'd'} // Track fragment header
	TypeTfdt = BoxType{'t', 'f', 'd', 't'} // Track fragment decode time
	TypeTrun = BoxType{'t', 'r', 'u', 'n'} // Track run (per-sample metadata)
	TypeSidx = BoxType{'s', 'i', 'd', 'x'} // Segment index
	TypeEmsg = BoxType{'e', 'm', 's', 'g'} // Event message
	TypeMfra = BoxType{'m', 'f', 'r', 'a'} // Movie fragment random access container
	TypeTfra = BoxType{'t', 'f', 'r', 'a'} // Track fragment random access
	TypeMfro = BoxType{'m', 'f', 'r', 'o'} // Movie fragment random access offset
)

// Metadata boxes.
var (
	TypeMeta = BoxType{'m', 'e', 't', 'a'} // Metadata container
	TypeUdta = BoxType{'u', 'd', 't', 'a'} // User data container
	TypeKeys = BoxType{'k', 'e', 'y', 's'} // iTunes metadata key table
	TypeIlst = BoxType{'i', 'l', 's', 't'} // iTunes metadata item list
	TypeMean = BoxType{'m', 'e', 'a', 'n'} // iTunes freeform key namespace
	TypeName = BoxType{'n', 'a', 'm', 'e'} // iTunes freeform key name
	TypeData = BoxType{'d', 'a', 't', 'a'} // iTunes metadata value
	TypeCprt = BoxType{'c', 'p', 'r', 't'} // Copyright notice (fullbox only under udta)
	TypeChpl = BoxType{'c', 'h', 'p', 'l'} // QTFF chapter list
)

// Data boxes.
var (
	TypeMdat = BoxType{'m', 'd', 'a', 't'} // Media data payload
	TypeFree = BoxType{'f', 'r', 'e', 'e'} // Free space (can be skipped)
	TypeSkip = BoxType{'s', 'k', 'i', 'p'} // Free space (can be skipped)
)

// Sample entry boxes (children of stsd).
var (
	TypeAvc1 = BoxType{'a', 'v', 'c', '1'} // AVC/H.264 visual sample entry
	TypeAvcC = BoxType{'a', 'v', 'c', 'C'} // AVC decoder configuration record
	TypeBtrt = BoxType{'b', 't', 'r', 't'} // MPEG-4 bit rate
	TypePasp = BoxType{'p', 'a', 's', 'p'} // Pixel aspect ratio
	TypeMp4a = BoxType{'m', 'p', '4', 'a'} // MPEG-4 audio sample entry
	TypeEsds = BoxType{'e', 's', 'd', 's'} // ES descriptor
	TypeAc3  = BoxType{'a', 'c', '-', '3'} // AC-3 audio sample entry
	TypeDac3 = BoxType{'d', 'a', 'c', '3'} // AC-3 specific box
	TypeEc3  = BoxType{'e', 'c', '-', '3'} // E-AC-3 audio sample entry
	TypeDec3 = BoxType{'d', 'e', 'c', '3'} // E-AC-3 specific box
	TypeDtsc = BoxType{'d', 't', 's', 'c'} // DTS Coherent Acoustics sample entry
	TypeDtsh = BoxType{'d', 't', 's', 'h'} // DTS-HD sample entry
	TypeDtsl = BoxType{'d', 't', 's', 'l'} // DTS-HD lossless sample entry
	TypeDtse = BoxType{'d', 't', 's', 'e'} // DTS Express (LBR) sample entry
	TypeDdts = BoxType{'d', 'd', 't', 's'} // DTS specific box
	TypeLpcm = BoxType{'l', 'p', 'c', 'm'} // QTFF uncompressed (LPCM) audio sample entry
)

// IsFullBox returns true if the box type has version and flags fields.
//
// cprt is a fullbox only when its parent is udta; callers that know the
// parent should use IsFullBoxIn instead.
func IsFullBox(t BoxType) bool {
	switch t {
	case TypeMvhd, TypeTkhd, TypeMdhd, TypeHdlr,
		TypeVmhd, TypeSmhd, TypeDref, TypeStsd,
		TypeStts, TypeCtts, TypeStsc, TypeStsz,
		TypeStco, TypeCo64, TypeStss, TypeStps, TypeElst,
		TypeMeta, TypeEsds, TypeMehd, TypeTrex,
		TypeMfhd, TypeTfhd, TypeTfdt, TypeTrun,
		TypeSbgp, TypeSgpd, TypeSaiz, TypeSaio,
		TypeCslg, TypeSdtp, TypeSidx, TypeEmsg,
		TypeTfra, TypeMfro, TypeChpl,
		TypeDac3, TypeDec3, TypeDdts,
		TypeKeys, TypeMean, TypeName:
		return true
	}
	return false
}

// IsFullBoxIn is IsFullBox with the one contextual exception spec'd: cprt is
// a fullbox only when parent is udta.
func IsFullBoxIn(t, parent BoxType) bool {
	if t == TypeCprt {
		return parent == TypeUdta
	}
	return IsFullBox(t)
}

// IsContainerBox returns true if the box type is a container that holds child boxes.
func IsContainerBox(t BoxType) bool {
	switch t {
	case TypeMoov, TypeTrak, TypeEdts, TypeMdia,
		TypeMinf, TypeDinf, TypeStbl, TypeUdta,
		TypeMeta, TypeMvex, TypeMoof, TypeTraf,
		TypeTref, TypeTrgr, TypeMfra, TypeIlst:
		return true
	}
	return false
}
