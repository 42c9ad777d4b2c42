package track

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// EditEntry is one edit list segment, copied verbatim from elst: a run of
// the movie timeline mapped onto a span of the media timeline (or silence,
// when MediaTime is -1).
type EditEntry struct {
	SegmentDuration uint64 // movie timescale
	MediaTime       int64  // media timescale, -1 for an empty edit
	MediaRate       int32  // 16.16 fixed, 0x00010000 == 1x
}

// SampleProperty summarizes a sample's random-access standing: its sync
// flag, its sdtp dependency flags (interpreted per the track's
// SampleDialect), and its "rap "/"roll" sample-grouping outcome.
type SampleProperty struct {
	IsSync bool

	Leading     uint8
	Independent bool
	Disposable  bool
	Redundant   bool

	OpenGOP  bool
	PreRoll  int32
	PostRoll int32
}

// CtdShift returns max(0, dts-cts) over every sample, the non-negative
// shift that keeps the composition timeline from going negative relative
// to decode order. With Samples sorted in decode order (ParseTracks always
// produces that order) this is just the largest negative PresentationOffset.
func (t *Track) CtdShift() int64 {
	var shift int64
	for _, s := range t.Samples {
		if d := -int64(s.PresentationOffset); d > shift {
			shift = d
		}
	}
	return shift
}

// DTS returns the decode timestamp of sample n (0-based), in media ticks.
func (t *Track) DTS(n int) (int64, error) {
	if n < 0 || n >= len(t.Samples) {
		return 0, fmt.Errorf("sample %d out of range (%d samples): %w", n, len(t.Samples), ErrInvalidTrack)
	}
	return t.Samples[n].DTS, nil
}

// CTS returns the composition timestamp of sample n, in media ticks.
func (t *Track) CTS(n int) (int64, error) {
	if n < 0 || n >= len(t.Samples) {
		return 0, fmt.Errorf("sample %d out of range (%d samples): %w", n, len(t.Samples), ErrInvalidTrack)
	}
	return t.Samples[n].PTS(), nil
}

// Duration returns the decode duration of sample n, in media ticks.
func (t *Track) Duration(n int) (uint32, error) {
	if n < 0 || n >= len(t.Samples) {
		return 0, fmt.Errorf("sample %d out of range (%d samples): %w", n, len(t.Samples), ErrInvalidTrack)
	}
	return t.Samples[n].Duration, nil
}

// Property returns sample n's cached random-access property.
func (t *Track) Property(n int) (SampleProperty, error) {
	if n < 0 || n >= len(t.Samples) {
		return SampleProperty{}, fmt.Errorf("sample %d out of range (%d samples): %w", n, len(t.Samples), ErrInvalidTrack)
	}
	s := t.Samples[n]
	return SampleProperty{
		IsSync:      s.IsSync,
		Leading:     s.Leading,
		Independent: s.Independent,
		Disposable:  s.Disposable,
		Redundant:   s.Redundant,
		OpenGOP:     s.OpenGOP,
		PreRoll:     s.PreRoll,
		PostRoll:    s.PostRoll,
	}, nil
}

// ReadSample seeks r to sample n's byte position and reads its bytes.
func (t *Track) ReadSample(r io.ReaderAt, n int) ([]byte, error) {
	if n < 0 || n >= len(t.Samples) {
		return nil, fmt.Errorf("sample %d out of range (%d samples): %w", n, len(t.Samples), ErrInvalidTrack)
	}
	s := t.Samples[n]
	buf := make([]byte, s.Size)
	if _, err := r.ReadAt(buf, s.Offset); err != nil {
		return nil, fmt.Errorf("read sample %d at offset %d: %w", n, s.Offset, err)
	}
	return buf, nil
}

// NearestRAP scans outward from n for the nearest sync sample, preferring
// the backward direction (decoders resume from an earlier random-access
// point and play forward through n).
func (t *Track) NearestRAP(n int) (int, bool) {
	if n < 0 || n >= len(t.Samples) {
		return 0, false
	}
	for i := n; i >= 0; i-- {
		if t.Samples[i].IsSync {
			return i, true
		}
	}
	for i := n + 1; i < len(t.Samples); i++ {
		if t.Samples[i].IsSync {
			return i, true
		}
	}
	return 0, false
}

// NearestRAPDetail is NearestRAP plus the number of leading samples between
// the random-access point and n that must be decoded (and, for samples
// before the RAP, discarded) to render n, and n's own GDR roll distances
// (see SampleProperty.PreRoll/PostRoll).
type NearestRAPDetail struct {
	Index        int
	LeadingCount int
	PreRoll      int32
	PostRoll     int32
}

func (t *Track) NearestRAPDetail(n int) (NearestRAPDetail, bool) {
	rap, ok := t.NearestRAP(n)
	if !ok {
		return NearestRAPDetail{}, false
	}
	leading := n - rap
	if leading < 0 {
		leading = 0
	}
	detail := NearestRAPDetail{Index: rap, LeadingCount: leading}
	if n >= 0 && n < len(t.Samples) {
		detail.PreRoll = t.Samples[n].PreRoll
		detail.PostRoll = t.Samples[n].PostRoll
	}
	return detail, true
}

// Timestamps is the exported (dts, cts) pair for one sample, used by
// GetTimestamps/SetTimestamps.
type Timestamps struct {
	DTS int64
	CTS int64
}

// GetTimestamps exports the full (dts, cts) table in sample order.
func (t *Track) GetTimestamps() []Timestamps {
	out := make([]Timestamps, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = Timestamps{DTS: s.DTS, CTS: s.PTS()}
	}
	return out
}

var ErrTimestampsNotMonotonic = errors.New("decode timestamps must be non-decreasing")

// SetTimestamps imports a (dts, cts) table, recomputing each sample's
// Duration and PresentationOffset and CtdShift from first principles. dts
// must be non-decreasing; the last sample's duration is taken from its
// existing value since there is no following dts to derive it from.
func (t *Track) SetTimestamps(ts []Timestamps) error {
	if len(ts) != len(t.Samples) {
		return fmt.Errorf("%d timestamps for %d samples: %w", len(ts), len(t.Samples), ErrInvalidTrack)
	}
	for i, v := range ts {
		if i > 0 && v.DTS < ts[i-1].DTS {
			return fmt.Errorf("sample %d: %w", i, ErrTimestampsNotMonotonic)
		}
		t.Samples[i].DTS = v.DTS
		t.Samples[i].PresentationOffset = int32(v.CTS - v.DTS)
		if i > 0 {
			t.Samples[i-1].Duration = uint32(v.DTS - ts[i-1].DTS)
		}
	}
	return nil
}

// CopyEdits transplants src's edit list onto dst, rescaling SegmentDuration
// by the movie-timescale ratio and MediaTime by the media-timescale ratio,
// then shifting MediaTime by the difference of the two tracks' ctd_shift.
func CopyEdits(dst, src *Track, dstMovieTimescale, srcMovieTimescale uint32) {
	if srcMovieTimescale == 0 || dstMovieTimescale == 0 || src.TimeScale == 0 || dst.TimeScale == 0 {
		dst.Edits = append([]EditEntry(nil), src.Edits...)
		return
	}
	shiftDelta := dst.CtdShift() - src.CtdShift()
	dst.Edits = make([]EditEntry, len(src.Edits))
	for i, e := range src.Edits {
		d := EditEntry{MediaRate: e.MediaRate}
		d.SegmentDuration = uint64(float64(e.SegmentDuration) * float64(dstMovieTimescale) / float64(srcMovieTimescale))
		if e.MediaTime == -1 {
			d.MediaTime = -1
		} else {
			d.MediaTime = int64(float64(e.MediaTime)*float64(dst.TimeScale)/float64(src.TimeScale)) + shiftDelta
		}
		dst.Edits[i] = d
	}
}

// SortByDTS returns sample indices in decode-timestamp order.
func (t *Track) SortByDTS() []int {
	idx := make([]int, len(t.Samples))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Samples[idx[a]].DTS < t.Samples[idx[b]].DTS
	})
	return idx
}

// SortByCTS returns sample indices in composition-timestamp order.
func (t *Track) SortByCTS() []int {
	idx := make([]int, len(t.Samples))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.Samples[idx[a]].PTS() < t.Samples[idx[b]].PTS()
	})
	return idx
}

// LpcmSampleCount returns the total sample count across all LPCM bunches.
func (t *Track) LpcmSampleCount() int {
	var n int
	for _, b := range t.LpcmBunches {
		n += int(b.SampleCount)
	}
	return n
}

// LpcmDTS returns the decode timestamp of the n'th sample (0-based) within
// the LpcmBunch representation, derived from its bunch's start DTS and
// per-sample duration.
func (t *Track) LpcmDTS(n int) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("sample %d out of range: %w", n, ErrInvalidTrack)
	}
	for _, b := range t.LpcmBunches {
		if n < int(b.SampleCount) {
			return b.DTS + int64(n)*int64(b.Duration), nil
		}
		n -= int(b.SampleCount)
	}
	return 0, fmt.Errorf("sample out of range (%d lpcm samples): %w", t.LpcmSampleCount(), ErrInvalidTrack)
}

// LpcmOffset returns the byte offset of the n'th sample (0-based) within
// the LpcmBunch representation.
func (t *Track) LpcmOffset(n int) (int64, error) {
	if n < 0 {
		return 0, fmt.Errorf("sample %d out of range: %w", n, ErrInvalidTrack)
	}
	for _, b := range t.LpcmBunches {
		if n < int(b.SampleCount) {
			return b.Offset + int64(n)*int64(b.SampleSize), nil
		}
		n -= int(b.SampleCount)
	}
	return 0, fmt.Errorf("sample out of range (%d lpcm samples): %w", t.LpcmSampleCount(), ErrInvalidTrack)
}

// MaxSampleDelay is max_i(cts_sorted_position(i) - i), the worst-case
// number of samples a player must buffer to present in composition order.
// Zero for tracks with no B-frame style reordering.
func (t *Track) MaxSampleDelay() int {
	sorted := t.SortByCTS()
	pos := make([]int, len(sorted))
	for sortedIdx, sampleIdx := range sorted {
		pos[sampleIdx] = sortedIdx
	}
	var max int
	for i, p := range pos {
		if d := p - i; d > max {
			max = d
		}
	}
	return max
}
