package track_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
	"github.com/tetsuo/mp4/track"
)

// buildVideoMoov assembles a one-track, three-sample moov buffer: a single
// chunk holding all three samples, a uniform sample duration, and one edit
// list entry, exercising the full parseTrak/parseStbl/parseSamples path.
func buildVideoMoov(t *testing.T) []byte {
	t.Helper()

	avcC := &mp4.Box{Type: mp4.TypeAvcC, AvcC: &mp4.AvcC{Buffer: []byte{0x01, 0x64, 0x00, 0x1e, 0xff}}}
	avc1 := &mp4.Box{
		Type: mp4.TypeAvc1,
		Visual: &mp4.VisualSampleEntry{
			DataReferenceIndex: 1,
			Width:              640,
			Height:             360,
			Children:           []*mp4.Box{avcC},
		},
	}
	stsd := &mp4.Box{Type: mp4.TypeStsd, Stsd: &mp4.Stsd{Entries: []*mp4.Box{avc1}}}

	stsz := &mp4.Box{Type: mp4.TypeStsz, Stsz: &mp4.Stsz{Entries: []uint32{100, 150, 200}}}
	stts := &mp4.Box{Type: mp4.TypeStts, Stts: &mp4.Stts{Entries: []mp4.STTSEntry{{Count: 3, Duration: 512}}}}
	stsc := &mp4.Box{Type: mp4.TypeStsc, Stsc: &mp4.Stsc{Entries: []mp4.STSCEntry{{FirstChunk: 1, SamplesPerChunk: 3, SampleDescriptionId: 1}}}}
	stco := &mp4.Box{Type: mp4.TypeStco, Stco: &mp4.Stco{Entries: []uint32{1000}}}

	stbl := &mp4.Box{Type: mp4.TypeStbl, Children: []*mp4.Box{stsd, stts, stsc, stsz, stco}}
	dinf := &mp4.Box{Type: mp4.TypeDinf}
	vmhd := &mp4.Box{Type: mp4.TypeVmhd, Vmhd: &mp4.Vmhd{}}
	minf := &mp4.Box{Type: mp4.TypeMinf, Children: []*mp4.Box{vmhd, dinf, stbl}}

	mdhd := &mp4.Box{Type: mp4.TypeMdhd, Mdhd: &mp4.Mdhd{TimeScale: 12800, Duration: 1536}}
	hdlr := &mp4.Box{Type: mp4.TypeHdlr, Hdlr: &mp4.Hdlr{HandlerType: [4]byte{'v', 'i', 'd', 'e'}, Name: "VideoHandler"}}
	mdia := &mp4.Box{Type: mp4.TypeMdia, Children: []*mp4.Box{mdhd, hdlr, minf}}

	elst := &mp4.Box{Type: mp4.TypeElst, Elst: &mp4.Elst{Entries: []mp4.ElstEntry{
		{TrackDuration: 1536, MediaTime: 0, MediaRate: [4]byte{0x00, 0x01, 0x00, 0x00}},
	}}}
	edts := &mp4.Box{Type: mp4.TypeEdts, Children: []*mp4.Box{elst}}

	tkhd := &mp4.Box{Type: mp4.TypeTkhd, Tkhd: &mp4.Tkhd{
		TrackId: 1, Duration: 1536, Matrix: [36]byte{}, TrackWidth: 640 << 16, TrackHeight: 360 << 16,
	}}
	trak := &mp4.Box{Type: mp4.TypeTrak, Children: []*mp4.Box{tkhd, edts, mdia}}

	mvhd := &mp4.Box{Type: mp4.TypeMvhd, Mvhd: &mp4.Mvhd{TimeScale: 12800, Duration: 1536, NextTrackId: 2, Matrix: [36]byte{}}}
	moov := &mp4.Box{Type: mp4.TypeMoov, Children: []*mp4.Box{mvhd, trak}}

	buf, err := mp4.EncodeBox(moov)
	require.NoError(t, err)
	return buf
}

func TestParseTracksBasic(t *testing.T) {
	buf := buildVideoMoov(t)

	tracks, duration, err := track.ParseTracks(buf)
	require.NoError(t, err)
	require.Equal(t, uint64(1536), duration)
	require.Len(t, tracks, 1)

	tr := tracks[0]
	require.Equal(t, track.TrackVideo, tr.Kind)
	require.Equal(t, uint32(1), tr.ID)
	require.Equal(t, uint32(12800), tr.TimeScale)
	require.Equal(t, "avc1.64001e", tr.Codec())
	require.Equal(t, uint16(640), tr.Width)
	require.Equal(t, uint16(360), tr.Height)
	require.Len(t, tr.Samples, 3)
}

func TestParseTracksSampleLayout(t *testing.T) {
	buf := buildVideoMoov(t)
	tracks, _, err := track.ParseTracks(buf)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	tr := tracks[0]

	require.Equal(t, uint32(100), tr.Samples[0].Size)
	require.Equal(t, uint32(150), tr.Samples[1].Size)
	require.Equal(t, uint32(200), tr.Samples[2].Size)

	require.Equal(t, int64(1000), tr.Samples[0].Offset)
	require.Equal(t, int64(1100), tr.Samples[1].Offset)
	require.Equal(t, int64(1250), tr.Samples[2].Offset)

	require.Equal(t, int64(0), tr.Samples[0].DTS)
	require.Equal(t, int64(512), tr.Samples[1].DTS)
	require.Equal(t, int64(1024), tr.Samples[2].DTS)

	for i := range tr.Samples {
		require.True(t, tr.Samples[i].IsSync, "sample %d: no stss present means every sample is sync", i)
	}

	require.Len(t, tr.Edits, 1)
	require.Equal(t, int64(0), tr.Edits[0].MediaTime)
}
