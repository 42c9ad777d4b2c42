package track_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tetsuo/mp4/track"
)

// sampleTrackFromSlice builds a Track carrying samples directly, bypassing
// box parsing, since Track's sample-bearing fields are all exported.
func sampleTrackFromSlice(samples []track.Sample) *track.Track {
	return &track.Track{
		ID:        1,
		Kind:      track.TrackVideo,
		TimeScale: 1000,
		Samples:   samples,
	}
}

func TestCtdShift(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, PresentationOffset: 0},
		{DTS: 10, PresentationOffset: -5},
		{DTS: 20, PresentationOffset: 10},
	})
	require.Equal(t, int64(5), tr.CtdShift())
}

func TestCtdShiftAllNonNegative(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, PresentationOffset: 0},
		{DTS: 10, PresentationOffset: 5},
	})
	require.Equal(t, int64(0), tr.CtdShift())
}

func TestDTSCTSOutOfRange(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{{DTS: 1}})

	_, err := tr.DTS(5)
	require.Error(t, err)
	require.ErrorIs(t, err, track.ErrInvalidTrack)

	_, err = tr.CTS(-1)
	require.Error(t, err)
}

func TestPropertyAndReadSample(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{Offset: 0, Size: 4, IsSync: true},
		{Offset: 4, Size: 3, IsSync: false},
	})

	p, err := tr.Property(1)
	require.NoError(t, err)
	require.False(t, p.IsSync)

	data := bytes.NewReader([]byte("abcdXYZ"))
	got, err := tr.ReadSample(data, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("XYZ"), got)

	_, err = tr.ReadSample(data, 99)
	require.Error(t, err)
}

func TestNearestRAP(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{IsSync: true},
		{IsSync: false},
		{IsSync: false},
		{IsSync: true},
		{IsSync: false},
	})

	idx, ok := tr.NearestRAP(2)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	idx, ok = tr.NearestRAP(0)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	detail, ok := tr.NearestRAPDetail(2)
	require.True(t, ok)
	require.Equal(t, 0, detail.Index)
	require.Equal(t, 2, detail.LeadingCount)
}

func TestNearestRAPNoneBehindFallsForward(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{IsSync: false},
		{IsSync: false},
		{IsSync: true},
	})
	idx, ok := tr.NearestRAP(0)
	require.True(t, ok)
	require.Equal(t, 2, idx)
}

func TestGetSetTimestamps(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, Duration: 10, PresentationOffset: 0},
		{DTS: 10, Duration: 10, PresentationOffset: 5},
		{DTS: 20, Duration: 10, PresentationOffset: -5},
	})

	ts := tr.GetTimestamps()
	require.Len(t, ts, 3)
	require.Equal(t, int64(0), ts[0].DTS)
	require.Equal(t, int64(15), ts[1].CTS)
	require.Equal(t, int64(15), ts[2].CTS)

	newTs := []track.Timestamps{
		{DTS: 0, CTS: 0},
		{DTS: 100, CTS: 110},
		{DTS: 200, CTS: 190},
	}
	require.NoError(t, tr.SetTimestamps(newTs))
	require.Equal(t, uint32(100), tr.Samples[0].Duration)
	require.Equal(t, uint32(100), tr.Samples[1].Duration)
	require.Equal(t, int32(-10), tr.Samples[2].PresentationOffset)
}

func TestSetTimestampsRejectsNonMonotonic(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{{}, {}})
	err := tr.SetTimestamps([]track.Timestamps{{DTS: 10}, {DTS: 5}})
	require.Error(t, err)
	require.ErrorIs(t, err, track.ErrTimestampsNotMonotonic)
}

func TestSetTimestampsWrongLength(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{{}})
	err := tr.SetTimestamps([]track.Timestamps{{}, {}})
	require.Error(t, err)
	require.ErrorIs(t, err, track.ErrInvalidTrack)
}

func TestCopyEdits(t *testing.T) {
	src := sampleTrackFromSlice(nil)
	src.TimeScale = 1000
	src.Edits = []track.EditEntry{{SegmentDuration: 2000, MediaTime: 500, MediaRate: 0x00010000}}

	dst := sampleTrackFromSlice(nil)
	dst.TimeScale = 2000

	track.CopyEdits(dst, src, 1000, 500)
	require.Len(t, dst.Edits, 1)
	require.Equal(t, uint64(4000), dst.Edits[0].SegmentDuration)
	require.Equal(t, int64(1000), dst.Edits[0].MediaTime)
}

func TestCopyEditsPreservesEmptyEdit(t *testing.T) {
	src := sampleTrackFromSlice(nil)
	src.TimeScale = 1000
	src.Edits = []track.EditEntry{{SegmentDuration: 500, MediaTime: -1}}

	dst := sampleTrackFromSlice(nil)
	dst.TimeScale = 1000

	track.CopyEdits(dst, src, 1000, 1000)
	require.Equal(t, int64(-1), dst.Edits[0].MediaTime)
}

func TestSortByDTSAndCTS(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, PresentationOffset: 20},
		{DTS: 10, PresentationOffset: -20},
		{DTS: 20, PresentationOffset: 0},
	})

	require.Equal(t, []int{0, 1, 2}, tr.SortByDTS())
	require.Equal(t, []int{1, 0, 2}, tr.SortByCTS())
}

func TestMaxSampleDelay(t *testing.T) {
	tr := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, PresentationOffset: 0},
		{DTS: 10, PresentationOffset: 0},
		{DTS: 20, PresentationOffset: 0},
	})
	require.Equal(t, 0, tr.MaxSampleDelay())

	reordered := sampleTrackFromSlice([]track.Sample{
		{DTS: 0, PresentationOffset: 30},
		{DTS: 10, PresentationOffset: -10},
		{DTS: 20, PresentationOffset: -10},
		{DTS: 30, PresentationOffset: -10},
	})
	require.Greater(t, reordered.MaxSampleDelay(), 0)
}
