package mp4

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// AudioSpecificConfig carries the MPEG-4 Audio decoder configuration
// embedded in an esds DecoderSpecificInfo, covering the common AAC LC /
// HE-AAC GASpecificConfig path.

// MPEG4AudioObjectType enumerates the ISO/IEC 14496-3 audioObjectType field.
type MPEG4AudioObjectType uint8

const (
	AOTAACMain MPEG4AudioObjectType = 1
	AOTAACLC   MPEG4AudioObjectType = 2
	AOTAACSSR  MPEG4AudioObjectType = 3
	AOTAACLTP  MPEG4AudioObjectType = 4
	AOTSBR     MPEG4AudioObjectType = 5
	AOTAACScal MPEG4AudioObjectType = 6
	AOTPS      MPEG4AudioObjectType = 29
)

var mpeg4SampleRates = [13]uint32{
	96000, 88200, 64000, 48000, 44100, 32000,
	24000, 22050, 16000, 12000, 11025, 8000, 7350,
}

// AudioSpecificConfig is the decoded form of an MPEG-4 AudioSpecificConfig.
type AudioSpecificConfig struct {
	AudioObjectType        MPEG4AudioObjectType
	SamplingFrequencyIndex uint8
	SamplingFrequency      uint32 // only set when SamplingFrequencyIndex == 0xF
	ChannelConfiguration   uint8

	// GASpecificConfig, present for AAC Main/LC/SSR/LTP.
	FrameLengthFlag     bool
	DependsOnCoreCoder  bool
	ExtensionFlag       bool

	// Set when SBR is signalled, either explicitly (audioObjectType 5 at
	// the start of the config) or by a trailing SBR/PS extension (the
	// 0x2b7 syncword); PSPresent only by the trailing extension.
	ExtensionAudioObjectType MPEG4AudioObjectType
	SBRPresent               bool
	PSPresent                bool
}

func readAudioObjectType(r *bitio.Reader) (MPEG4AudioObjectType, error) {
	v, err := r.ReadBits(5)
	if err != nil {
		return 0, err
	}
	if v == 31 {
		ext, err := r.ReadBits(6)
		if err != nil {
			return 0, err
		}
		return MPEG4AudioObjectType(32 + ext), nil
	}
	return MPEG4AudioObjectType(v), nil
}

func writeAudioObjectType(w *bitio.Writer, aot MPEG4AudioObjectType) error {
	if aot > 31 {
		if err := w.WriteBits(31, 5); err != nil {
			return err
		}
		return w.WriteBits(uint64(aot-32), 6)
	}
	return w.WriteBits(uint64(aot), 5)
}

func readSamplingFrequencyIndex(r *bitio.Reader) (idx uint8, freq uint32, err error) {
	v, err := r.ReadBits(4)
	if err != nil {
		return 0, 0, err
	}
	idx = uint8(v)
	if idx == 0xF {
		f, err := r.ReadBits(24)
		if err != nil {
			return 0, 0, err
		}
		return idx, uint32(f), nil
	}
	return idx, 0, nil
}

func writeSamplingFrequencyIndex(w *bitio.Writer, idx uint8, freq uint32) error {
	if err := w.WriteBits(uint64(idx), 4); err != nil {
		return err
	}
	if idx == 0xF {
		return w.WriteBits(uint64(freq), 24)
	}
	return nil
}

// DecodeAudioSpecificConfig parses a raw DecoderSpecificInfo payload.
func DecodeAudioSpecificConfig(buf []byte) (*AudioSpecificConfig, error) {
	r := bitio.NewReader(bytes.NewReader(buf))

	aot, err := readAudioObjectType(r)
	if err != nil {
		return nil, fmt.Errorf("audio object type: %w", ErrInvalidData)
	}
	asc := &AudioSpecificConfig{AudioObjectType: aot}

	if aot == AOTSBR {
		ext, err := readAudioObjectType(r)
		if err != nil {
			return nil, fmt.Errorf("extension audio object type: %w", ErrInvalidData)
		}
		// Explicit SBR signalling: keep the core object type in
		// AudioObjectType and SBR as the extension, the layout
		// EncodeAudioSpecificConfig writes back.
		asc.AudioObjectType = ext
		asc.ExtensionAudioObjectType = AOTSBR
		asc.SBRPresent = true
	}

	idx, freq, err := readSamplingFrequencyIndex(r)
	if err != nil {
		return nil, fmt.Errorf("sampling frequency index: %w", ErrInvalidData)
	}
	asc.SamplingFrequencyIndex, asc.SamplingFrequency = idx, freq

	chanCfg, err := r.ReadBits(4)
	if err != nil {
		return nil, fmt.Errorf("channel configuration: %w", ErrInvalidData)
	}
	asc.ChannelConfiguration = uint8(chanCfg)

	switch asc.AudioObjectType {
	case AOTAACMain, AOTAACLC, AOTAACSSR, AOTAACLTP, AOTSBR:
		frameLen, err := r.ReadBits(1)
		if err != nil {
			return nil, fmt.Errorf("frameLengthFlag: %w", ErrInvalidData)
		}
		asc.FrameLengthFlag = frameLen != 0
		dependsOn, err := r.ReadBits(1)
		if err != nil {
			return nil, fmt.Errorf("dependsOnCoreCoder: %w", ErrInvalidData)
		}
		asc.DependsOnCoreCoder = dependsOn != 0
		if asc.DependsOnCoreCoder {
			if _, err := r.ReadBits(14); err != nil {
				return nil, fmt.Errorf("coreCoderDelay: %w", ErrInvalidData)
			}
		}
		extFlag, err := r.ReadBits(1)
		if err != nil {
			return nil, fmt.Errorf("extensionFlag: %w", ErrInvalidData)
		}
		asc.ExtensionFlag = extFlag != 0
	}

	// A trailing 11-bit 0x2b7 syncword signals a backward-compatible SBR/PS
	// extension; its absence (or truncated input) is not an error.
	sync, err := r.ReadBits(11)
	if err == nil && sync == 0x2b7 {
		ext, err := readAudioObjectType(r)
		if err == nil && ext == AOTSBR {
			asc.ExtensionAudioObjectType = ext
			present, err := r.ReadBits(1)
			if err == nil {
				asc.SBRPresent = present != 0
				if asc.SBRPresent {
					if _, _, err := readSamplingFrequencyIndex(r); err == nil {
						if sync2, err := r.ReadBits(5); err == nil && sync2 == 0x05 {
							ps, err := r.ReadBits(1)
							if err == nil {
								asc.PSPresent = ps != 0
							}
						}
					}
				}
			}
		}
	}

	return asc, nil
}

// EncodeAudioSpecificConfig serializes asc into a DecoderSpecificInfo payload.
func EncodeAudioSpecificConfig(asc *AudioSpecificConfig) ([]byte, error) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	aot := asc.AudioObjectType
	if asc.SBRPresent && asc.ExtensionAudioObjectType == AOTSBR {
		aot = AOTSBR
	}
	if err := writeAudioObjectType(w, aot); err != nil {
		return nil, err
	}
	if aot == AOTSBR {
		if err := writeAudioObjectType(w, asc.AudioObjectType); err != nil {
			return nil, err
		}
	}
	if err := writeSamplingFrequencyIndex(w, asc.SamplingFrequencyIndex, asc.SamplingFrequency); err != nil {
		return nil, err
	}
	if err := w.WriteBits(uint64(asc.ChannelConfiguration), 4); err != nil {
		return nil, err
	}

	switch asc.AudioObjectType {
	case AOTAACMain, AOTAACLC, AOTAACSSR, AOTAACLTP, AOTSBR:
		if err := w.WriteBool(asc.FrameLengthFlag); err != nil {
			return nil, err
		}
		if err := w.WriteBool(asc.DependsOnCoreCoder); err != nil {
			return nil, err
		}
		if asc.DependsOnCoreCoder {
			if err := w.WriteBits(0, 14); err != nil { // coreCoderDelay
				return nil, err
			}
		}
		if err := w.WriteBool(asc.ExtensionFlag); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
