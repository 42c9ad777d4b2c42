package track

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

type sbgpRun struct {
	count    uint32
	groupIdx uint32
}

// sbgpBody builds a raw sbgp body (version 0: grouping_type, entry_count,
// then sample_count/group_description_index pairs) for resolveSampleGroups
// tests, matching the wire layout mp4.NewSbgpIter reads.
func sbgpBody(t *testing.T, groupingType string, runs []sbgpRun) []byte {
	t.Helper()
	buf := make([]byte, 8+8*len(runs))
	copy(buf[0:4], groupingType)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(runs)))
	for i, r := range runs {
		off := 8 + i*8
		binary.BigEndian.PutUint32(buf[off:off+4], r.count)
		binary.BigEndian.PutUint32(buf[off+4:off+8], r.groupIdx)
	}
	return buf
}

// sgpdBody builds a raw version-1 sgpd body (grouping_type, default_length,
// entry_count, then one default_length-sized payload per entry) matching the
// wire layout mp4.NewSgpdIter reads.
func sgpdBody(t *testing.T, groupingType string, defaultLength uint32, payloads [][]byte) []byte {
	t.Helper()
	buf := make([]byte, 12)
	copy(buf[0:4], groupingType)
	binary.BigEndian.PutUint32(buf[4:8], defaultLength)
	binary.BigEndian.PutUint32(buf[8:12], uint32(len(payloads)))
	for _, p := range payloads {
		buf = append(buf, p...)
	}
	return buf
}

func TestDetectSampleDialectISOLeadingValue(t *testing.T) {
	// is_leading == 2 ("not leading") is only a valid code under ISO.
	require.Equal(t, DialectISO, detectSampleDialect([]byte{0x80}))
}

func TestDetectSampleDialectQT(t *testing.T) {
	// is_leading == 1 with sample_depends_on == 2 (independent) only
	// parses as "early display" under the QT dialect.
	b := byte(1<<6 | 2<<4)
	require.Equal(t, DialectQT, detectSampleDialect([]byte{b}))
}

func TestDetectSampleDialectDefaultsToISO(t *testing.T) {
	require.Equal(t, DialectISO, detectSampleDialect(nil))
	require.Equal(t, DialectISO, detectSampleDialect([]byte{0x00}))
}

func TestCollapseLpcmBunchesMergesContiguousRuns(t *testing.T) {
	samples := []Sample{
		{TrackID: 1, Offset: 0, Duration: 1, Size: 4, DTS: 0},
		{TrackID: 1, Offset: 4, Duration: 1, Size: 4, DTS: 1},
		{TrackID: 1, Offset: 8, Duration: 1, Size: 4, DTS: 2},
	}
	bunches := collapseLpcmBunches(samples)
	require.Len(t, bunches, 1)
	require.Equal(t, uint32(3), bunches[0].SampleCount)
	require.Equal(t, int64(0), bunches[0].Offset)
}

func TestCollapseLpcmBunchesBreaksOnSizeChange(t *testing.T) {
	samples := []Sample{
		{TrackID: 1, Offset: 0, Duration: 1, Size: 4, DTS: 0},
		{TrackID: 1, Offset: 4, Duration: 1, Size: 8, DTS: 1},
	}
	bunches := collapseLpcmBunches(samples)
	require.Len(t, bunches, 2)
	require.Equal(t, uint32(1), bunches[0].SampleCount)
	require.Equal(t, uint32(1), bunches[1].SampleCount)
}

func TestCollapseLpcmBunchesBreaksOnGap(t *testing.T) {
	samples := []Sample{
		{TrackID: 1, Offset: 0, Duration: 1, Size: 4, DTS: 0},
		{TrackID: 1, Offset: 100, Duration: 1, Size: 4, DTS: 1}, // non-contiguous offset
	}
	bunches := collapseLpcmBunches(samples)
	require.Len(t, bunches, 2)
}

func TestResolveSampleGroupsRAPAndRoll(t *testing.T) {
	rapSbgp := groupBox{version: 0, data: sbgpBody(t, "rap ", []sbgpRun{{count: 2, groupIdx: 1}, {count: 1, groupIdx: 0}})}
	rapSgpd := groupBox{version: 1, data: sgpdBody(t, "rap ", 1, [][]byte{{0x80}})} // numLeadingKnown, numLeading=0

	rollSbgp := groupBox{version: 0, data: sbgpBody(t, "roll", []sbgpRun{{count: 3, groupIdx: 1}})}
	rollSgpd := groupBox{version: 1, data: sgpdBody(t, "roll", 2, [][]byte{{0xFF, 0xFB}})} // distance = -5

	rapAssigned, rapOpenGOP, roll := resolveSampleGroups(
		[]groupBox{rapSbgp, rollSbgp},
		[]groupBox{rapSgpd, rollSgpd},
		3,
	)

	require.Equal(t, []bool{true, true, false}, rapAssigned)
	require.Equal(t, []bool{false, false, false}, rapOpenGOP)
	require.Equal(t, int32(5), roll[0].preRoll)
	require.Equal(t, int32(5), roll[1].preRoll)
	require.Equal(t, int32(5), roll[2].preRoll)
}
