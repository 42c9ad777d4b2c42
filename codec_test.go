package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildEsdsBuffer assembles a minimal valid ES_Descriptor payload wrapping a
// DecoderConfigDescriptor (with the given object type indication) and a
// DecoderSpecificInfo carrying asc verbatim, plus a trailing
// SLConfigDescriptor, mirroring what an mp4a sample entry's esds box holds.
func buildEsdsBuffer(oti byte, asc []byte) []byte {
	dsi := append([]byte{0x05, byte(len(asc))}, asc...)

	dcdContent := make([]byte, 13)
	dcdContent[0] = oti
	dcd := append([]byte{0x04, byte(len(dcdContent) + len(dsi))}, dcdContent...)
	dcd = append(dcd, dsi...)

	slc := []byte{0x06, 0x01, 0x02}

	esContent := []byte{0x00, 0x00, 0x00} // ES_ID=0, flags=0
	esContent = append(esContent, dcd...)
	esContent = append(esContent, slc...)

	return append([]byte{0x03, byte(len(esContent))}, esContent...)
}

func buildMp4aStsd(t *testing.T) *Box {
	t.Helper()

	asc, err := EncodeAudioSpecificConfig(&AudioSpecificConfig{
		AudioObjectType:        AOTAACLC,
		SamplingFrequencyIndex: 3, // 48000
		ChannelConfiguration:   2,
	})
	require.NoError(t, err)

	esdsBody := buildEsdsBuffer(0x40, asc) // 0x40 == MPEG-4 Audio OTI
	esds := &Box{Type: TypeEsds, Esds: &Esds{Buffer: esdsBody}}

	mp4a := &Box{
		Type: TypeMp4a,
		Audio: &AudioSampleEntry{
			DataReferenceIndex: 1,
			ChannelCount:       2,
			SampleSize:         16,
			SampleRate:         48000 << 16,
			Children:           []*Box{esds},
		},
	}

	return &Box{Type: TypeStsd, Stsd: &Stsd{Entries: []*Box{mp4a}}}
}

func roundTripBox(t *testing.T, box *Box) *Box {
	t.Helper()
	n := EncodingLength(box)
	buf := make([]byte, n)
	written, err := encodeBox(box, buf, 0)
	require.NoError(t, err)
	require.EqualValues(t, n, written)

	decoded, err := Decode(buf, 0, len(buf))
	require.NoError(t, err)
	return decoded
}

func TestBuildSummaryAudio(t *testing.T) {
	stsd := roundTripBox(t, buildMp4aStsd(t))

	s, err := BuildSummary(stsd)
	require.NoError(t, err)
	require.Equal(t, SummaryAudio, s.Kind)
	require.Equal(t, TypeMp4a, s.CodecType)
	require.Equal(t, AOTAACLC, s.AudioObjectType)
	require.Equal(t, uint32(48000), s.SampleRate)
	require.Equal(t, uint32(2), s.ChannelCount)
	require.Equal(t, uint32(1024), s.SamplesPerFrame)
	require.NotEmpty(t, s.Exdata)
}

func TestBuildSummaryVideo(t *testing.T) {
	avcCBuf := []byte{0x01, 0x64, 0x00, 0x1e, 0xff, 0xe1, 0x00, 0x00}
	avcC := &Box{Type: TypeAvcC, AvcC: &AvcC{Buffer: avcCBuf}}
	avc1 := &Box{
		Type: TypeAvc1,
		Visual: &VisualSampleEntry{
			DataReferenceIndex: 1,
			Width:              1920,
			Height:             1080,
			HResolution:        0x00480000,
			VResolution:        0x00480000,
			Depth:              24,
			Children:           []*Box{avcC},
		},
	}
	stsd := roundTripBox(t, &Box{Type: TypeStsd, Stsd: &Stsd{Entries: []*Box{avc1}}})

	s, err := BuildSummary(stsd)
	require.NoError(t, err)
	require.Equal(t, SummaryVideo, s.Kind)
	require.Equal(t, TypeAvc1, s.CodecType)
	require.Equal(t, uint32(1920), s.Width)
	require.Equal(t, uint32(1080), s.Height)
	require.Equal(t, avcCBuf, s.Exdata)
}

func TestBuildSummaryRejectsNonStsd(t *testing.T) {
	_, err := BuildSummary(&Box{Type: TypeFtyp})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrFunctionParam)
}

func TestBuildSummaryEmptyStsd(t *testing.T) {
	_, err := BuildSummary(&Box{Type: TypeStsd, Stsd: &Stsd{}})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestEsdsCodecString(t *testing.T) {
	asc, err := EncodeAudioSpecificConfig(&AudioSpecificConfig{
		AudioObjectType:        AOTAACLC,
		SamplingFrequencyIndex: 3,
		ChannelConfiguration:   2,
	})
	require.NoError(t, err)

	buf := buildEsdsBuffer(0x40, asc)
	require.Equal(t, "40.2", esdsCodecString(buf))

	dsi := esdsDecoderSpecificInfo(buf)
	require.Equal(t, asc, dsi)
}

func TestMdhdRoundTrip(t *testing.T) {
	box := roundTripBox(t, &Box{Type: TypeMdhd, Mdhd: &Mdhd{
		TimeScale: 48000,
		Duration:  96000,
		Language:  0x55C4,
		Quality:   0,
	}})
	require.Equal(t, uint32(48000), box.Mdhd.TimeScale)
	require.Equal(t, uint64(96000), box.Mdhd.Duration)
	require.Equal(t, uint16(0x55C4), box.Mdhd.Language)
}

func TestMdhdRoundTripV1(t *testing.T) {
	box := roundTripBox(t, &Box{Type: TypeMdhd, Mdhd: &Mdhd{
		V1:        true,
		TimeScale: 48000,
		Duration:  1 << 40, // exceeds 32 bits, exercises the full 64-bit field
	}})
	require.True(t, box.Mdhd.V1)
	require.Equal(t, uint64(1<<40), box.Mdhd.Duration)
}

func TestTkhdRoundTrip(t *testing.T) {
	box := roundTripBox(t, &Box{Type: TypeTkhd, Tkhd: &Tkhd{
		TrackId:     7,
		Duration:    12345,
		TrackWidth:  1920 << 16,
		TrackHeight: 1080 << 16,
	}})
	require.Equal(t, uint32(7), box.Tkhd.TrackId)
	require.Equal(t, uint32(12345), box.Tkhd.Duration)
	require.Equal(t, uint32(1920<<16), box.Tkhd.TrackWidth)
	require.Equal(t, uint32(1080<<16), box.Tkhd.TrackHeight)
}
