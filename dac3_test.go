package mp4

import (
	"bytes"
	"testing"

	"github.com/icza/bitio"
	"github.com/stretchr/testify/require"
)

func TestDac3RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		d    Dac3
	}{
		{"48kHz 5.1", Dac3{Fscod: 0, Bsid: 8, Bsmod: 0, Acmod: 7, Lfeon: true, BitRateCode: 20}},
		{"44.1kHz stereo", Dac3{Fscod: 1, Bsid: 8, Bsmod: 1, Acmod: 2, Lfeon: false, BitRateCode: 5}},
		{"32kHz mono no lfe", Dac3{Fscod: 2, Bsid: 6, Bsmod: 2, Acmod: 1, Lfeon: false, BitRateCode: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			box := &Box{Type: TypeDac3, Dac3: &tc.d}
			n := encodingLengthDac3(box)
			require.Equal(t, 3, n)

			buf := make([]byte, n)
			written := encodeDac3(box, buf, 0)
			require.Equal(t, n, written)

			decoded := &Box{}
			err := decodeDac3(decoded, buf, 0, len(buf))
			require.NoError(t, err)
			require.Equal(t, tc.d, *decoded.Dac3)
		})
	}
}

func TestDac3SampleRate(t *testing.T) {
	require.Equal(t, uint32(48000), (&Dac3{Fscod: 0}).SampleRate())
	require.Equal(t, uint32(44100), (&Dac3{Fscod: 1}).SampleRate())
	require.Equal(t, uint32(32000), (&Dac3{Fscod: 2}).SampleRate())
	require.Equal(t, uint32(0), (&Dac3{Fscod: 3}).SampleRate())
}

func TestDac3TooSmall(t *testing.T) {
	box := &Box{}
	err := decodeDac3(box, []byte{0x00, 0x00}, 0, 2)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestDec3RoundTrip(t *testing.T) {
	d := Dec3{
		DataRate: 192,
		Substreams: []Dec3Substream{
			{Fscod: 0, Bsid: 16, Bsmod: 0, Acmod: 7, Lfeon: true, NumDepSub: 0},
			{Fscod: 0, Bsid: 16, Bsmod: 1, Acmod: 2, Lfeon: false, NumDepSub: 1, ChanLoc: 0x3},
		},
	}
	box := &Box{Type: TypeDec3, Dec3: &d}
	n := encodingLengthDec3(box)
	buf := make([]byte, n)
	written := encodeDec3(box, buf, 0)
	require.Equal(t, n, written)

	decoded := &Box{}
	err := decodeDec3(decoded, buf, 0, len(buf))
	require.NoError(t, err)
	require.Equal(t, d, *decoded.Dec3)
}

func TestDec3SampleRate(t *testing.T) {
	d := &Dec3{Substreams: []Dec3Substream{{Fscod: 1}}}
	require.Equal(t, uint32(44100), d.SampleRate())

	empty := &Dec3{}
	require.Equal(t, uint32(0), empty.SampleRate())
}

func TestDdtsRoundTrip(t *testing.T) {
	d := Ddts{
		SamplingFrequency:  48000,
		MaxBitrate:         768000,
		AvgBitrate:         768000,
		PcmSampleDepth:     24,
		FrameDuration:      1,
		StreamConstruction: 5,
		CoreLFEPresent:     true,
		CoreLayout:         9,
		CoreSize:           512,
		StereoDownmix:      false,
		RepresentationType: 0,
		ChannelLayout:      0x3F,
		MultiAssetFlag:     false,
		LBRDurationMod:     false,
	}
	box := &Box{Type: TypeDdts, Ddts: &d}
	n := encodingLengthDdts(box)
	require.Equal(t, ddtsFixedLen, n)

	buf := make([]byte, n)
	written := encodeDdts(box, buf, 0)
	require.Equal(t, n, written)

	decoded := &Box{}
	err := decodeDdts(decoded, buf, 0, len(buf))
	require.NoError(t, err)
	require.Equal(t, d, *decoded.Ddts)
}

func buildAC3SyncFrame(t *testing.T, fscod, frmsizecod, bsid, bsmod, acmod uint64, lfeon bool) []byte {
	t.Helper()
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	w.WriteBits(0x0B77, 16) // syncword
	w.WriteBits(0, 16)      // crc1
	w.WriteBits(fscod, 2)
	w.WriteBits(frmsizecod, 6)
	w.WriteBits(bsid, 5)
	w.WriteBits(bsmod, 3)
	w.WriteBits(acmod, 3)
	if acmod&0x1 != 0 && acmod != 1 {
		w.WriteBits(0, 2) // cmixlev
	}
	if acmod&0x4 != 0 {
		w.WriteBits(0, 2) // surmixlev
	}
	if acmod == 2 {
		w.WriteBits(0, 2) // dsurmod
	}
	w.WriteBool(lfeon)
	w.Close()
	return bb.Bytes()
}

func TestParseAC3SyncFrame(t *testing.T) {
	data := buildAC3SyncFrame(t, 0, 20, 8, 1, 7, true)
	d, err := ParseAC3SyncFrame(data)
	require.NoError(t, err)
	require.Equal(t, uint8(0), d.Fscod)
	require.Equal(t, uint8(8), d.Bsid)
	require.Equal(t, uint8(1), d.Bsmod)
	require.Equal(t, uint8(7), d.Acmod)
	require.True(t, d.Lfeon)
	require.Equal(t, uint8(10), d.BitRateCode) // frmsizecod>>1
}

func TestParseAC3SyncFrameRejectsBadSyncword(t *testing.T) {
	_, err := ParseAC3SyncFrame([]byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseAC3SyncFrameRejectsReservedFscod(t *testing.T) {
	data := buildAC3SyncFrame(t, 3, 0, 8, 0, 1, false)
	_, err := ParseAC3SyncFrame(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseAC3SyncFrameRejectsOutOfRangeFrmsizecod(t *testing.T) {
	data := buildAC3SyncFrame(t, 0, 0x26, 8, 0, 1, false)
	_, err := ParseAC3SyncFrame(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseAC3SyncFrameRejectsOutOfRangeBsid(t *testing.T) {
	data := buildAC3SyncFrame(t, 0, 0, 10, 0, 1, false)
	_, err := ParseAC3SyncFrame(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func buildEAC3Frame(t *testing.T, strmtyp, substreamID, frmsiz, fscod, numblkscod, acmod, bsid uint64, lfeon bool) []byte {
	t.Helper()
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	w.WriteBits(0x0B77, 16)
	w.WriteBits(strmtyp, 2)
	w.WriteBits(substreamID, 3)
	w.WriteBits(frmsiz, 11)
	w.WriteBits(fscod, 2)
	if fscod == 3 {
		w.WriteBits(0, 2) // fscod2
	} else {
		w.WriteBits(numblkscod, 2)
	}
	w.WriteBits(acmod, 3)
	w.WriteBool(lfeon)
	w.WriteBits(bsid, 5)
	w.Close()
	frame := bb.Bytes()
	frameSize := 2 * (int(frmsiz) + 1)
	padded := make([]byte, frameSize)
	copy(padded, frame)
	return padded
}

func TestParseEAC3AccessUnitSingleIndependentSubstream(t *testing.T) {
	data := buildEAC3Frame(t, 0, 0, 98, 0, 3, 7, 16, true) // numblkscod=3 -> 6 blocks
	d, err := ParseEAC3AccessUnit(data)
	require.NoError(t, err)
	require.Len(t, d.Substreams, 1)
	require.Equal(t, uint8(7), d.Substreams[0].Acmod)
	require.True(t, d.Substreams[0].Lfeon)
	require.Equal(t, uint8(0), d.Substreams[0].NumDepSub)
}

func TestParseEAC3AccessUnitAccumulatesBlocksAcrossFrames(t *testing.T) {
	first := buildEAC3Frame(t, 0, 0, 48, 0, 0, 2, 16, false)  // numblkscod=0 -> 1 block
	second := buildEAC3Frame(t, 0, 0, 48, 0, 3, 2, 16, false) // numblkscod=3 -> 6 blocks, closes the AU
	data := append(append([]byte{}, first...), second...)
	d, err := ParseEAC3AccessUnit(data)
	require.NoError(t, err)
	require.Len(t, d.Substreams, 2)
}

func TestParseEAC3AccessUnitRejectsNonZeroStartingSubstream(t *testing.T) {
	data := buildEAC3Frame(t, 0, 1, 48, 0, 3, 2, 16, false)
	_, err := ParseEAC3AccessUnit(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseEAC3AccessUnitDependentSubstreamFoldedIn(t *testing.T) {
	independent := buildEAC3Frame(t, 0, 0, 48, 0, 0, 2, 16, false) // 1 block, AU stays open
	dependent := buildEAC3Frame(t, 1, 0, 48, 0, 3, 2, 16, false)   // strmtyp=1 -> dependent, closes AU
	data := append(append([]byte{}, independent...), dependent...)
	d, err := ParseEAC3AccessUnit(data)
	require.NoError(t, err)
	require.Len(t, d.Substreams, 1)
	require.Equal(t, uint8(1), d.Substreams[0].NumDepSub)
}

func buildDTSCoreFrame(t *testing.T, nblks, fsize, amode, sfreq, extAudio, lff, cpf, pcmr uint64) []byte {
	t.Helper()
	var bb bytes.Buffer
	w := bitio.NewWriter(&bb)
	w.WriteBits(0x7FFE8001, 32) // syncword
	w.WriteBits(0, 1)           // FTYPE
	w.WriteBits(0, 5)           // SHORT
	w.WriteBits(cpf, 1)         // CPF
	w.WriteBits(nblks, 7)       // NBLKS
	w.WriteBits(fsize, 14)      // FSIZE
	w.WriteBits(amode, 6)       // AMODE
	w.WriteBits(sfreq, 4)       // SFREQ
	w.WriteBits(0, 10)          // RATE/MIX/DYNF/TIMEF/AUXF/HDCD
	w.WriteBits(0, 3)           // EXT_AUDIO_ID
	w.WriteBits(extAudio, 1)    // EXT_AUDIO
	w.WriteBits(0, 1)           // ASPF
	w.WriteBits(lff, 2)         // LFF
	skipBits := uint8(8)
	if cpf != 0 {
		skipBits += 16
	}
	w.WriteBits(0, uint8(skipBits)) // HFLAG/HCRC/FILTS/VERNUM/CHIST
	w.WriteBits(pcmr, 3) // PCMR
	w.WriteBits(0, 6)    // SUMF/SUMS/DIALNORM
	w.Close()
	frame := bb.Bytes()
	frameSize := int(fsize) + 1
	padded := make([]byte, frameSize)
	copy(padded, frame)
	return padded
}

func TestParseDTSCoreSubstream(t *testing.T) {
	data := buildDTSCoreFrame(t, 15, 511, 9, 13, 0, 0, 0, 5) // nblks=15->16 blocks, sfreq=13->48000, pcmr=5->24
	d, err := ParseDTSCoreSubstream(data)
	require.NoError(t, err)
	require.Equal(t, uint32(48000), d.SamplingFrequency)
	require.Equal(t, uint8(24), d.PcmSampleDepth)
	require.Equal(t, uint8(9), d.CoreLayout)
	require.Equal(t, uint16(512), d.CoreSize)
	require.Equal(t, uint8(1), d.StreamConstruction) // core only, no extension substream
	require.False(t, d.CoreLFEPresent)
}

func TestParseDTSCoreSubstreamRejectsBadSyncword(t *testing.T) {
	_, err := ParseDTSCoreSubstream([]byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseDTSCoreSubstreamRejectsTooFewBlocks(t *testing.T) {
	data := buildDTSCoreFrame(t, 3, 511, 9, 13, 0, 0, 0, 5) // nblks=3 -> 4 blocks, <=5
	_, err := ParseDTSCoreSubstream(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseDTSCoreSubstreamRejectsFrameSizeBelowMinimum(t *testing.T) {
	data := buildDTSCoreFrame(t, 15, 50, 9, 13, 0, 0, 0, 5) // fsize=50 -> frameSize=51 < 96
	_, err := ParseDTSCoreSubstream(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseDTSCoreSubstreamRejectsReservedLff(t *testing.T) {
	data := buildDTSCoreFrame(t, 15, 511, 9, 13, 0, 3, 0, 5)
	_, err := ParseDTSCoreSubstream(data)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestParseDTSCoreSubstreamDetectsExtensionSubstream(t *testing.T) {
	core := buildDTSCoreFrame(t, 15, 511, 9, 13, 1, 0, 0, 5) // extAudio=1
	var ext bytes.Buffer
	ew := bitio.NewWriter(&ext)
	ew.WriteBits(0x64582025, 32)
	ew.Close()
	data := append(core, ext.Bytes()...)
	d, err := ParseDTSCoreSubstream(data)
	require.NoError(t, err)
	require.Equal(t, uint8(2), d.StreamConstruction)
}

func TestDdtsWithReservedBox(t *testing.T) {
	d := Ddts{
		SamplingFrequency: 48000,
		ReservedBox:       []byte{0x00, 0x00, 0x00, 0x08, 'x', 'x', 'x', 'x'},
	}
	box := &Box{Type: TypeDdts, Ddts: &d}
	n := encodingLengthDdts(box)
	require.Equal(t, ddtsFixedLen+len(d.ReservedBox), n)

	buf := make([]byte, n)
	encodeDdts(box, buf, 0)

	decoded := &Box{}
	err := decodeDdts(decoded, buf, 0, len(buf))
	require.NoError(t, err)
	require.Equal(t, d.ReservedBox, decoded.Ddts.ReservedBox)
}
