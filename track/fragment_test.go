package track_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4"
	"github.com/tetsuo/mp4/track"
)

// buildMoof assembles a raw moof box with one traf carrying a tfhd (with
// base-data-offset and default sample duration/size/flags present), a tfdt,
// and a trun with two samples, one of which overrides its composition
// offset and flags.
func buildMoof(t *testing.T, trackId uint32, baseDataOffset uint64) []byte {
	t.Helper()

	tfhd := &mp4.Box{
		Type:  mp4.TypeTfhd,
		Flags: mp4.TfhdBaseDataOffsetPresent | mp4.TfhdDefaultSampleDurationPresent | mp4.TfhdDefaultSampleSizePresent | mp4.TfhdDefaultSampleFlagsPresent,
		Tfhd: &mp4.Tfhd{
			TrackId:               trackId,
			BaseDataOffset:        baseDataOffset,
			DefaultSampleDuration: 512,
			DefaultSampleSize:     1000,
			DefaultSampleFlags:    0x01010000, // non-sync, depends on others
		},
	}
	tfdt := &mp4.Box{Type: mp4.TypeTfdt, Tfdt: &mp4.Tfdt{BaseMediaDecodeTime: 9000}}

	trun := &mp4.Box{
		Type: mp4.TypeTrun,
		Trun: &mp4.Trun{
			Flags:            mp4.TrunDataOffsetPresent | mp4.TrunSampleSizePresent | mp4.TrunSampleCompositionTimeOffsetsPresent | mp4.TrunFirstSampleFlagsPresent,
			DataOffset:       8,
			FirstSampleFlags: 0x02000000, // sync, depends on nothing
			Entries: []mp4.TrunEntry{
				{SampleSize: 2000, SampleCompositionTimeOffset: 10},
				{SampleSize: 500, SampleCompositionTimeOffset: 0},
			},
		},
	}

	traf := &mp4.Box{Type: mp4.TypeTraf, Children: []*mp4.Box{tfhd, tfdt, trun}}
	moof := &mp4.Box{Type: mp4.TypeMoof, Children: []*mp4.Box{traf}}

	buf, err := mp4.EncodeBox(moof)
	require.NoError(t, err)
	return buf
}

func TestParseMoofBasic(t *testing.T) {
	buf := buildMoof(t, 1, 5000)

	runs, err := track.ParseMoof(buf, 4096, nil)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	require.Equal(t, uint32(1), run.TrackID)
	require.Equal(t, int64(9000), run.BaseTime)
	require.Len(t, run.Samples, 2)

	require.Equal(t, int64(5008), run.Samples[0].Offset) // base 5000 + trun data_offset 8
	require.Equal(t, uint32(2000), run.Samples[0].Size)
	require.Equal(t, uint32(512), run.Samples[0].Duration) // falls back to tfhd default
	require.Equal(t, int64(9000), run.Samples[0].DTS)
	require.Equal(t, int32(10), run.Samples[0].PresentationOffset)
	require.True(t, run.Samples[0].IsSync) // first-sample-flags override

	require.Equal(t, int64(5008+2000), run.Samples[1].Offset)
	require.Equal(t, uint32(500), run.Samples[1].Size)
	require.Equal(t, int64(9512), run.Samples[1].DTS)
	require.False(t, run.Samples[1].IsSync) // falls back to tfhd default flags
}

func TestParseMoofFallsBackToTrex(t *testing.T) {
	tfhd := &mp4.Box{
		Type:  mp4.TypeTfhd,
		Flags: mp4.TfhdDefaultBaseIsMoof,
		Tfhd:  &mp4.Tfhd{TrackId: 7},
	}
	trun := &mp4.Box{
		Type:  mp4.TypeTrun,
		Flags: 0,
		Trun:  &mp4.Trun{Entries: []mp4.TrunEntry{{}, {}}},
	}
	traf := &mp4.Box{Type: mp4.TypeTraf, Children: []*mp4.Box{tfhd, trun}}
	moof := &mp4.Box{Type: mp4.TypeMoof, Children: []*mp4.Box{traf}}
	buf, err := mp4.EncodeBox(moof)
	require.NoError(t, err)

	trex := map[uint32]track.TrexDefault{
		7: {DefaultSampleDuration: 100, DefaultSampleSize: 50, DefaultSampleFlags: 0x02000000},
	}

	runs, err := track.ParseMoof(buf, 2048, trex)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]

	require.Equal(t, int64(2048), run.Samples[0].Offset) // default-base-is-moof
	require.Equal(t, uint32(50), run.Samples[0].Size)
	require.Equal(t, uint32(100), run.Samples[0].Duration)
	require.True(t, run.Samples[0].IsSync)
	require.Equal(t, int64(2048+50), run.Samples[1].Offset)
}

func TestParseMoofRejectsNonMoof(t *testing.T) {
	ftyp := &mp4.Box{Type: mp4.TypeFtyp, Ftyp: &mp4.Ftyp{Brand: [4]byte{'i', 's', 'o', 'm'}}}
	buf, err := mp4.EncodeBox(ftyp)
	require.NoError(t, err)

	_, err = track.ParseMoof(buf, 0, nil)
	require.Error(t, err)
}

func TestMergeFragmentRunsAppendsAndSortsByDTS(t *testing.T) {
	tr := &track.Track{ID: 1, Samples: []track.Sample{
		{DTS: 0, Size: 100},
		{DTS: 512, Size: 100},
	}}
	run := track.FragmentRun{
		TrackID:  1,
		BaseTime: 1024,
		Samples: []track.Sample{
			{DTS: 1024, Size: 50},
			{DTS: 1536, Size: 50},
		},
	}

	track.MergeFragmentRuns([]*track.Track{tr}, []track.FragmentRun{run})

	require.Len(t, tr.Samples, 4)
	for i := 1; i < len(tr.Samples); i++ {
		require.LessOrEqual(t, tr.Samples[i-1].DTS, tr.Samples[i].DTS)
	}
}

func TestMergeFragmentRunsIgnoresUnknownTrackAndLPCM(t *testing.T) {
	known := &track.Track{ID: 1, Samples: []track.Sample{{DTS: 0}}}
	lpcm := &track.Track{ID: 2, IsLPCM: true, Samples: []track.Sample{{DTS: 0}}}

	runs := []track.FragmentRun{
		{TrackID: 99, Samples: []track.Sample{{DTS: 5}}}, // no matching track
		{TrackID: 2, Samples: []track.Sample{{DTS: 5}}},  // LPCM track left untouched
	}

	track.MergeFragmentRuns([]*track.Track{known, lpcm}, runs)

	require.Len(t, known.Samples, 1)
	require.Len(t, lpcm.Samples, 1)
}

func TestParseMfra(t *testing.T) {
	tfra := &mp4.Box{
		Type: mp4.TypeTfra,
		Tfra: &mp4.Tfra{
			TrackId: 1,
			Entries: []mp4.TfraEntry{
				{Time: 0, MoofOffset: 100, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
				{Time: 1000, MoofOffset: 5000, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
			},
		},
	}
	mfro := &mp4.Box{Type: mp4.TypeMfro, Mfro: &mp4.Mfro{Size: 0}}
	mfra := &mp4.Box{Type: mp4.TypeMfra, Children: []*mp4.Box{tfra, mfro}}

	buf, err := mp4.EncodeBox(mfra)
	require.NoError(t, err)

	entries, err := track.ParseMfra(buf, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(5000), entries[1].MoofOffset)

	none, err := track.ParseMfra(buf, 99)
	require.NoError(t, err)
	require.Empty(t, none)
}
