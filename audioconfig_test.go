package mp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioSpecificConfigRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		asc  AudioSpecificConfig
	}{
		{
			name: "AAC-LC stereo 48kHz",
			asc: AudioSpecificConfig{
				AudioObjectType:        AOTAACLC,
				SamplingFrequencyIndex: 3,
				ChannelConfiguration:   2,
			},
		},
		{
			name: "AAC Main mono 44.1kHz with core delay",
			asc: AudioSpecificConfig{
				AudioObjectType:        AOTAACMain,
				SamplingFrequencyIndex: 4,
				ChannelConfiguration:   1,
				DependsOnCoreCoder:     true,
			},
		},
		{
			name: "escaped sampling frequency",
			asc: AudioSpecificConfig{
				AudioObjectType:        AOTAACLC,
				SamplingFrequencyIndex: 0xF,
				SamplingFrequency:      90000,
				ChannelConfiguration:   6,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := EncodeAudioSpecificConfig(&tc.asc)
			require.NoError(t, err)

			decoded, err := DecodeAudioSpecificConfig(buf)
			require.NoError(t, err)
			require.Equal(t, tc.asc.AudioObjectType, decoded.AudioObjectType)
			require.Equal(t, tc.asc.SamplingFrequencyIndex, decoded.SamplingFrequencyIndex)
			require.Equal(t, tc.asc.SamplingFrequency, decoded.SamplingFrequency)
			require.Equal(t, tc.asc.ChannelConfiguration, decoded.ChannelConfiguration)
			require.Equal(t, tc.asc.DependsOnCoreCoder, decoded.DependsOnCoreCoder)
		})
	}
}

func TestAudioObjectTypeEscape(t *testing.T) {
	asc := AudioSpecificConfig{
		AudioObjectType:        35, // escaped, > 31
		SamplingFrequencyIndex: 3,
		ChannelConfiguration:   2,
	}
	buf, err := EncodeAudioSpecificConfig(&asc)
	require.NoError(t, err)

	decoded, err := DecodeAudioSpecificConfig(buf)
	require.NoError(t, err)
	require.Equal(t, MPEG4AudioObjectType(35), decoded.AudioObjectType)
}

func TestDecodeAudioSpecificConfigTruncated(t *testing.T) {
	_, err := DecodeAudioSpecificConfig(nil)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidData)
}
