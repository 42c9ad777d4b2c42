package mp4

import "fmt"

// Summary is a codec-agnostic description of a track's sample format,
// derived from the first sample entry in an stsd box. It mirrors the
// division between audio and video stream configuration kept separate
// upstream, flattened here into one struct with a Kind discriminator
// since Go favors a tagged union over a shared base struct.
type Summary struct {
	Kind SummaryKind

	CodecType BoxType // sample entry fourcc, e.g. "mp4a", "avc1", "ac-3"

	// Audio fields.
	AudioObjectType MPEG4AudioObjectType
	SampleRate      uint32
	ChannelCount    uint32
	BitDepth        uint32
	SamplesPerFrame uint32

	// Video fields.
	Width, Height               uint32
	DisplayWidth, DisplayHeight uint32

	// Raw decoder-specific data, typically an esds DecoderSpecificInfo
	// payload (AudioSpecificConfig) or an avcC AVCDecoderConfigurationRecord.
	Exdata []byte

	MaxAULength uint32
}

// SummaryKind discriminates audio from video summaries.
type SummaryKind uint8

const (
	SummaryUnknown SummaryKind = iota
	SummaryAudio
	SummaryVideo
)

// BuildSummary derives a Summary from the first entry of an stsd box.
func BuildSummary(stsd *Box) (*Summary, error) {
	if stsd == nil || stsd.Type != TypeStsd || stsd.Stsd == nil {
		return nil, fmt.Errorf("not an stsd box: %w", ErrFunctionParam)
	}
	if len(stsd.Stsd.Entries) == 0 {
		return nil, fmt.Errorf("stsd has no sample entries: %w", ErrInvalidData)
	}
	entry := stsd.Stsd.Entries[0]

	switch {
	case entry.Audio != nil:
		s := &Summary{
			Kind:         SummaryAudio,
			CodecType:    entry.Type,
			ChannelCount: uint32(entry.Audio.ChannelCount),
			BitDepth:     uint32(entry.Audio.SampleSize),
			SampleRate:   entry.Audio.SampleRate >> 16,
		}
		if esds := findChild(entry.Audio.Children, TypeEsds); esds != nil && esds.Esds != nil {
			s.Exdata = esdsDecoderSpecificInfo(esds.Esds.Buffer)
			if asc, err := DecodeAudioSpecificConfig(s.Exdata); err == nil {
				s.AudioObjectType = asc.AudioObjectType
				if asc.SamplingFrequency != 0 {
					s.SampleRate = asc.SamplingFrequency
				}
				s.ChannelCount = uint32(asc.ChannelConfiguration)
				s.SamplesPerFrame = 1024
			}
		}
		if dac3 := findChild(entry.Audio.Children, TypeDac3); dac3 != nil && dac3.Dac3 != nil {
			s.SampleRate = dac3.Dac3.SampleRate()
		}
		if dec3 := findChild(entry.Audio.Children, TypeDec3); dec3 != nil && dec3.Dec3 != nil {
			s.SampleRate = dec3.Dec3.SampleRate()
		}
		if ddts := findChild(entry.Audio.Children, TypeDdts); ddts != nil && ddts.Ddts != nil {
			s.SampleRate = ddts.Ddts.SamplingFrequency
			s.BitDepth = uint32(ddts.Ddts.PcmSampleDepth)
		}
		return s, nil

	case entry.Visual != nil:
		s := &Summary{
			Kind:          SummaryVideo,
			CodecType:     entry.Type,
			Width:         uint32(entry.Visual.Width),
			Height:        uint32(entry.Visual.Height),
			DisplayWidth:  uint32(entry.Visual.Width),
			DisplayHeight: uint32(entry.Visual.Height),
		}
		if avcC := findChild(entry.Visual.Children, TypeAvcC); avcC != nil && avcC.AvcC != nil {
			s.Exdata = avcC.AvcC.Buffer
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported sample entry %s: %w", entry.Type, ErrPatchWelcome)
}

func findChild(children []*Box, t BoxType) *Box {
	for _, c := range children {
		if c.Type == t {
			return c
		}
	}
	return nil
}
