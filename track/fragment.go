package track

import (
	"fmt"
	"sort"

	"github.com/tetsuo/mp4"
)

// TrexDefault holds one track's fallback sample parameters, declared once
// by a trex box inside the movie's mvex container. A tfhd box's own
// presence flags take precedence over these per field.
type TrexDefault struct {
	DefaultSampleDescriptionIndex uint32
	DefaultSampleDuration         uint32
	DefaultSampleSize             uint32
	DefaultSampleFlags            uint32
}

// parseMvex collects trex defaults keyed by track ID from a moov's mvex box.
func parseMvex(mr *mp4.Reader) map[uint32]TrexDefault {
	defaults := make(map[uint32]TrexDefault)

	mr.Enter()
	defer mr.Exit()

	for mr.Next() {
		if mr.Type() != mp4.TypeTrex {
			continue
		}
		trackId, descIdx, dur, size, flags := mr.ReadTrex()
		defaults[trackId] = TrexDefault{
			DefaultSampleDescriptionIndex: descIdx,
			DefaultSampleDuration:         dur,
			DefaultSampleSize:             size,
			DefaultSampleFlags:            flags,
		}
	}
	return defaults
}

// FragmentRun is one track's samples reassembled from a single moof box,
// plus the decode time its tfdt established for the first sample.
type FragmentRun struct {
	TrackID  uint32
	BaseTime int64
	Samples  []Sample
}

// sampleIsSync extracts sample_is_non_sync_sample and sample_depends_on
// from a trun/tfhd sample_flags field (ISO/IEC 14496-12 §8.8.3.1) and
// reports whether the sample is usable as a random access point.
// sample_depends_on == 1 means the sample depends on others (not sync);
// 0 (unknown) and 2 (does not depend on others) both pass.
func sampleIsSync(flags uint32) bool {
	dependsOn := (flags >> 24) & 0x3
	nonSync := (flags >> 16) & 0x1
	return nonSync == 0 && dependsOn != 1
}

// ParseMoof reassembles per-track sample lists from a single moof box.
// moofOffset is the moof box's absolute byte offset within the file (or
// segment) it belongs to; trun data-offset and tfhd base-data-offset
// fields are measured from the start of that same file, so the returned
// samples carry absolute offsets usable directly against it. trex supplies
// the fallback sample parameters for tracks whose tfhd omits them.
func ParseMoof(moofBuf []byte, moofOffset int64, trex map[uint32]TrexDefault) ([]FragmentRun, error) {
	mr := mp4.NewReader(moofBuf)
	if !mr.Next() || mr.Type() != mp4.TypeMoof {
		return nil, fmt.Errorf("moof box not found: %w", ErrInvalidTrack)
	}

	var runs []FragmentRun
	runningBase := moofOffset

	mr.Enter()
	for mr.Next() {
		if mr.Type() != mp4.TypeTraf {
			continue
		}
		run, nextBase, err := parseTraf(&mr, moofOffset, runningBase, trex)
		if err != nil {
			return nil, err
		}
		runningBase = nextBase
		runs = append(runs, run)
	}
	mr.Exit()

	return runs, nil
}

func parseTraf(mr *mp4.Reader, moofOffset, fallbackBase int64, trex map[uint32]TrexDefault) (FragmentRun, int64, error) {
	mr.Enter()
	defer mr.Exit()

	var trackId uint32
	var tfhdSeen bool
	var defDuration, defSize, defFlags uint32
	base := fallbackBase // neither base-data-offset nor default-base-is-moof set
	var baseTime int64
	var dts int64

	var samples []Sample

	for mr.Next() {
		switch mr.Type() {
		case mp4.TypeTfhd:
			tfhdFlags := mr.Flags()
			trackId = mr.ReadTfhd()
			tfhdSeen = true

			defDuration, defSize, defFlags = 0, 0, 0
			if d, ok := trex[trackId]; ok {
				defDuration = d.DefaultSampleDuration
				defSize = d.DefaultSampleSize
				defFlags = d.DefaultSampleFlags
			}

			bdo, _, dur, size, flags := mr.ReadTfhdOptional(tfhdFlags)
			if tfhdFlags&mp4.TfhdBaseDataOffsetPresent != 0 {
				base = int64(bdo)
			} else if tfhdFlags&mp4.TfhdDefaultBaseIsMoof != 0 {
				base = moofOffset
			}
			if tfhdFlags&mp4.TfhdDefaultSampleDurationPresent != 0 {
				defDuration = dur
			}
			if tfhdFlags&mp4.TfhdDefaultSampleSizePresent != 0 {
				defSize = size
			}
			if tfhdFlags&mp4.TfhdDefaultSampleFlagsPresent != 0 {
				defFlags = flags
			}

		case mp4.TypeTfdt:
			baseTime = int64(mr.ReadTfdt())
			dts = baseTime

		case mp4.TypeTrun:
			if !tfhdSeen {
				return FragmentRun{}, fallbackBase, fmt.Errorf("trun before tfhd: %w", ErrInvalidTrack)
			}
			trunFlags := mr.Flags()
			it := mp4.NewTrunIter(mr.Data(), trunFlags)

			offset := base
			if trunFlags&mp4.TrunDataOffsetPresent != 0 {
				offset = base + int64(it.DataOffset())
			}

			for idx := 0; ; idx++ {
				entry, ok := it.Next()
				if !ok {
					break
				}

				duration := defDuration
				if trunFlags&mp4.TrunSampleDurationPresent != 0 {
					duration = entry.SampleDuration
				}
				size := defSize
				if trunFlags&mp4.TrunSampleSizePresent != 0 {
					size = entry.SampleSize
				}
				flags := defFlags
				if trunFlags&mp4.TrunSampleFlagsPresent != 0 {
					flags = entry.SampleFlags
				} else if idx == 0 && trunFlags&mp4.TrunFirstSampleFlagsPresent != 0 {
					flags = it.FirstSampleFlags()
				}
				var compOff int32
				if trunFlags&mp4.TrunSampleCompositionTimeOffsetsPresent != 0 {
					compOff = entry.SampleCompositionTimeOffset
				}

				samples = append(samples, Sample{
					TrackID:            trackId,
					Offset:             offset,
					Size:               size,
					Duration:           duration,
					DTS:                dts,
					PresentationOffset: compOff,
					IsSync:             sampleIsSync(flags),
				})

				offset += int64(size)
				dts += int64(duration)
			}

			base = offset
		}
	}

	return FragmentRun{TrackID: trackId, BaseTime: baseTime, Samples: samples}, base, nil
}

// MoofSegment pairs a raw moof box with its absolute byte offset in the
// file (or segment) it belongs to, the input ParseMoof needs per fragment.
type MoofSegment struct {
	Buf    []byte
	Offset int64
}

// MergeFragmentRuns folds each run's samples into the matching track (by
// TrackID) in tracks, appending to any moov-declared samples and
// re-sorting by DTS so the combined list stays in decode order. Runs for
// track IDs not present in tracks are ignored. Tracks with an LPCM
// representation are left untouched: fragment reassembly into LpcmBunch
// runs is not implemented, matching the rejection of mixed representations
// in validateSampleRepresentation.
func MergeFragmentRuns(tracks []*Track, runs []FragmentRun) {
	touched := make(map[uint32]bool, len(runs))
	for _, run := range runs {
		t := FindTrack(tracks, run.TrackID)
		if t == nil || t.IsLPCM {
			continue
		}
		t.Samples = append(t.Samples, run.Samples...)
		touched[run.TrackID] = true
	}
	for _, t := range tracks {
		if !touched[t.ID] {
			continue
		}
		sort.SliceStable(t.Samples, func(i, j int) bool {
			return t.Samples[i].DTS < t.Samples[j].DTS
		})
	}
}

// ParseFragmentedTracks parses a moov box the same as ParseTracks, then
// reassembles every segment's moof/traf/trun samples via ParseMoof and
// folds them into the matching track's Samples with MergeFragmentRuns, so
// DTS/CTS/Property/ReadSample/NearestRAP and the rest of the timeline query
// API see fragment-only samples through the same per-track Samples slice
// moov-declared samples use.
func ParseFragmentedTracks(moovBuf []byte, segments []MoofSegment) ([]*Track, uint64, error) {
	tracks, duration, err := ParseTracks(moovBuf)
	if err != nil {
		return nil, 0, err
	}

	trex := make(map[uint32]TrexDefault, len(tracks))
	for _, t := range tracks {
		if t.Trex != nil {
			trex[t.ID] = *t.Trex
		}
	}

	for _, seg := range segments {
		runs, err := ParseMoof(seg.Buf, seg.Offset, trex)
		if err != nil {
			return nil, 0, err
		}
		MergeFragmentRuns(tracks, runs)
	}

	return tracks, duration, nil
}

// ParseMfra reads a movie fragment random access index and returns, for the
// given track, the (time, moofOffset) pairs it records. These corroborate
// rather than replace samples derived from moof/traf: a player may use them
// to seek directly to a fragment's moof without scanning the file linearly.
type RandomAccessEntry struct {
	Time         uint64
	MoofOffset   uint64
	SampleNumber uint32
}

func ParseMfra(buf []byte, trackId uint32) ([]RandomAccessEntry, error) {
	box, err := mp4.Decode(buf, 0, len(buf))
	if err != nil {
		return nil, fmt.Errorf("decode mfra: %w", err)
	}
	if box.Type != mp4.TypeMfra {
		return nil, fmt.Errorf("not an mfra box: %w", ErrInvalidTrack)
	}

	var out []RandomAccessEntry
	for _, c := range box.Children {
		if c.Type != mp4.TypeTfra || c.Tfra == nil || c.Tfra.TrackId != trackId {
			continue
		}
		for _, e := range c.Tfra.Entries {
			out = append(out, RandomAccessEntry{
				Time:         e.Time,
				MoofOffset:   e.MoofOffset,
				SampleNumber: e.SampleNumber,
			})
		}
	}
	return out, nil
}
