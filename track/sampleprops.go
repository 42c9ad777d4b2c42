package track

import "github.com/tetsuo/mp4"

// SampleDialect distinguishes the two incompatible readings of an sdtp
// entry's is_leading/sample_depends_on bits.
type SampleDialect int

const (
	// DialectISO: is_leading enumerates leading/not-leading/
	// has-no-dependency/dependency-unknown.
	DialectISO SampleDialect = iota
	// DialectQT: is_leading == 1 combined with sample_depends_on ==
	// independent means "may be displayed earlier than decode order", not
	// a leading sample.
	DialectQT
)

// detectSampleDialect scans an sdtp body once and classifies it. Any entry
// with is_leading > 1 is only valid under ISO; failing that, an entry with
// is_leading == 1 and an independent sample_depends_on is only valid under
// QT. Absent either signal, ISO is assumed.
func detectSampleDialect(sdtp []byte) SampleDialect {
	for _, b := range sdtp {
		isLeading := (b >> 6) & 0x3
		dependsOn := (b >> 4) & 0x3
		if isLeading > 1 {
			return DialectISO
		}
		if isLeading == 1 && dependsOn == 2 {
			return DialectQT
		}
	}
	return DialectISO
}

var (
	groupingTypeRAP  = [4]byte{'r', 'a', 'p', ' '}
	groupingTypeRoll = [4]byte{'r', 'o', 'l', 'l'}
)

// groupBox pairs one sbgp or sgpd box's raw body with its version, kept
// until sample count is known so the grouping_type can be checked against
// "rap "/"roll" during parseSamples.
type groupBox struct {
	data    []byte
	version uint8
}

// expandSbgp turns a run-length sbgp body into one group-description index
// per sample (0 = unassigned), truncating or zero-filling to numSamples.
func expandSbgp(data []byte, version uint8, numSamples int) []uint32 {
	idx := make([]uint32, numSamples)
	if data == nil {
		return idx
	}
	_, it := mp4.NewSbgpIter(data, version)
	pos := 0
	for pos < numSamples {
		count, groupIdx, ok := it.Next()
		if !ok {
			break
		}
		for c := uint32(0); c < count && pos < numSamples; c++ {
			idx[pos] = groupIdx
			pos++
		}
	}
	return idx
}

// collectSgpdPayloads returns the ordered list of group-specific payloads
// from an sgpd body, indexable as payloads[groupDescriptionIndex-1].
func collectSgpdPayloads(data []byte, version uint8) [][]byte {
	if data == nil {
		return nil
	}
	_, _, it := mp4.NewSgpdIter(data, version)
	var out [][]byte
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// findGroupingType returns the first sbgp/sgpd box in boxes whose
// grouping_type matches want.
func findGroupingType(boxes []groupBox, want [4]byte) (data []byte, version uint8, found bool) {
	for _, b := range boxes {
		gt, _ := mp4.NewSbgpIter(b.data, b.version)
		if gt == want {
			return b.data, b.version, true
		}
	}
	return nil, 0, false
}

func findSgpdGroupingType(boxes []groupBox, want [4]byte) (data []byte, version uint8, found bool) {
	for _, b := range boxes {
		gt, _, _ := mp4.NewSgpdIter(b.data, b.version)
		if gt == want {
			return b.data, b.version, true
		}
	}
	return nil, 0, false
}

// rollInfo is the per-sample "roll" grouping outcome: a roll_distance < 0
// means preRoll samples before this one are needed to decode it; > 0 means
// this sample is itself required to complete an earlier, dependent sample
// (postRoll samples after the RAP).
type rollInfo struct {
	preRoll  int32
	postRoll int32
}

// resolveSampleGroups combines a track's sbgp/sgpd boxes into per-sample
// arrays: whether each sample carries a "rap " grouping at all, whether
// that grouping is open-GOP (num_leading_samples_known set and non-zero),
// and its "roll" pre-/post-roll distance. Group indices at or above 0x10000
// refer to fragment-local description tables this pass cannot resolve and
// are treated as unassigned.
func resolveSampleGroups(sbgp, sgpd []groupBox, numSamples int) (rapAssigned, rapOpenGOP []bool, roll []rollInfo) {
	rapAssigned = make([]bool, numSamples)
	rapOpenGOP = make([]bool, numSamples)
	roll = make([]rollInfo, numSamples)

	if rapData, rapVersion, ok := findGroupingType(sbgp, groupingTypeRAP); ok {
		rapIdx := expandSbgp(rapData, rapVersion, numSamples)
		for i, g := range rapIdx {
			rapAssigned[i] = g != 0
		}
		if sgpdData, sgpdVersion, ok := findSgpdGroupingType(sgpd, groupingTypeRAP); ok {
			payloads := collectSgpdPayloads(sgpdData, sgpdVersion)
			for i, g := range rapIdx {
				if g == 0 || g >= 0x10000 || int(g) > len(payloads) {
					continue
				}
				p := payloads[g-1]
				if len(p) < 1 {
					continue
				}
				numLeadingKnown := p[0]&0x80 != 0
				numLeading := p[0] & 0x7f
				rapOpenGOP[i] = numLeadingKnown && numLeading != 0
			}
		}
	}

	if rollData, rollVersion, ok := findGroupingType(sbgp, groupingTypeRoll); ok {
		rollIdx := expandSbgp(rollData, rollVersion, numSamples)
		if sgpdData, sgpdVersion, ok := findSgpdGroupingType(sgpd, groupingTypeRoll); ok {
			payloads := collectSgpdPayloads(sgpdData, sgpdVersion)
			for i, g := range rollIdx {
				if g == 0 || g >= 0x10000 || int(g) > len(payloads) {
					continue
				}
				p := payloads[g-1]
				if len(p) < 2 {
					continue
				}
				distance := int16(uint16(p[0])<<8 | uint16(p[1]))
				switch {
				case distance < 0:
					roll[i].preRoll = int32(-distance)
				case distance > 0:
					roll[i].postRoll = int32(distance)
				}
			}
		}
	}

	return rapAssigned, rapOpenGOP, roll
}

// LpcmBunch is a run-length collapsed group of consecutive LPCM samples
// that share the same per-sample duration and size, used in place of a
// per-sample list for constant-format uncompressed audio.
type LpcmBunch struct {
	TrackID     uint32
	Offset      int64
	Duration    uint32
	SampleSize  uint32
	DTS         int64
	SampleCount uint32
}

// collapseLpcmBunches groups a decode-order sample list into runs of
// constant duration and size whose byte offsets and decode timestamps
// advance by exactly SampleSize/Duration between samples.
func collapseLpcmBunches(samples []Sample) []LpcmBunch {
	if len(samples) == 0 {
		return nil
	}
	bunches := make([]LpcmBunch, 0, len(samples))
	cur := LpcmBunch{
		TrackID:     samples[0].TrackID,
		Offset:      samples[0].Offset,
		Duration:    samples[0].Duration,
		SampleSize:  samples[0].Size,
		DTS:         samples[0].DTS,
		SampleCount: 1,
	}
	for i := 1; i < len(samples); i++ {
		s := samples[i]
		contiguous := s.Offset == cur.Offset+int64(cur.SampleSize)*int64(cur.SampleCount) &&
			s.DTS == cur.DTS+int64(cur.Duration)*int64(cur.SampleCount)
		if s.Duration == cur.Duration && s.Size == cur.SampleSize && contiguous {
			cur.SampleCount++
			continue
		}
		bunches = append(bunches, cur)
		cur = LpcmBunch{
			TrackID:     s.TrackID,
			Offset:      s.Offset,
			Duration:    s.Duration,
			SampleSize:  s.Size,
			DTS:         s.DTS,
			SampleCount: 1,
		}
	}
	bunches = append(bunches, cur)
	return bunches
}
