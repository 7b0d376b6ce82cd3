package srsproto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/robgrahamau/datis-go/srsproto"
)

func samplePacket() srsproto.VoicePacket {
	var sguid srsproto.SGUID
	copy(sguid[:], "abcdefghijklmnopqrstuv")
	return srsproto.VoicePacket{
		AudioPart: []byte{1, 2, 3, 4, 5},
		Frequencies: []srsproto.Frequency{
			{Freq: 251_000_000, Modulation: srsproto.ModulationAM, Encryption: srsproto.EncryptionNone},
		},
		UnitID:            7,
		PacketID:          1,
		HopCount:          0,
		TransmissionSGUID: sguid,
		ClientSGUID:       sguid,
	}
}

func TestVoiceCodecRoundTrip(t *testing.T) {
	codec := srsproto.VoiceCodec{}
	p := samplePacket()
	encoded := codec.Encode(p)
	decoded, ok := codec.Decode(encoded)
	require.True(t, ok)
	assert.Equal(t, p, decoded)
}

func TestVoiceCodecDecodeTruncated(t *testing.T) {
	codec := srsproto.VoiceCodec{}
	encoded := codec.Encode(samplePacket())
	_, ok := codec.Decode(encoded[:len(encoded)-5])
	assert.False(t, ok, "truncated datagram must be rejected")
}

func TestVoiceCodecDecodeShortHeader(t *testing.T) {
	codec := srsproto.VoiceCodec{}
	_, ok := codec.Decode([]byte{1, 2, 3})
	assert.False(t, ok)
}

// TestVoiceCodecRoundTripProperty checks VoiceCodec.Encode/Decode is the
// identity for arbitrary well-formed packets.
func TestVoiceCodecRoundTripProperty(t *testing.T) {
	codec := srsproto.VoiceCodec{}
	rapid.Check(t, func(t *rapid.T) {
		var sguid, txSguid srsproto.SGUID
		copy(sguid[:], rapid.SliceOfN(rapid.ByteRange('A', 'Z'), 22, 22).Draw(t, "clientSguid"))
		copy(txSguid[:], rapid.SliceOfN(rapid.ByteRange('A', 'Z'), 22, 22).Draw(t, "txSguid"))

		n := rapid.IntRange(0, 4).Draw(t, "numFreqs")
		freqs := make([]srsproto.Frequency, n)
		for i := range freqs {
			freqs[i] = srsproto.Frequency{
				Freq:       rapid.Float64Range(100_000_000, 399_999_000).Draw(t, "freq"),
				Modulation: srsproto.Modulation(rapid.IntRange(0, 1).Draw(t, "mod")),
				Encryption: srsproto.EncryptionNone,
			}
		}

		p := srsproto.VoicePacket{
			AudioPart:         rapid.SliceOfN(rapid.Byte(), 0, 1400).Draw(t, "audio"),
			Frequencies:       freqs,
			UnitID:            rapid.Uint32().Draw(t, "unitId"),
			PacketID:          rapid.Uint64().Draw(t, "packetId"),
			HopCount:          rapid.SampledFrom([]uint8{0}).Draw(t, "hop"),
			TransmissionSGUID: txSguid,
			ClientSGUID:       sguid,
		}

		encoded := codec.Encode(p)
		decoded, ok := codec.Decode(encoded)
		require.True(t, ok)

		if len(p.AudioPart) == 0 {
			assert.Empty(t, decoded.AudioPart)
		} else {
			assert.Equal(t, p.AudioPart, decoded.AudioPart)
		}
		if len(p.Frequencies) == 0 {
			assert.Empty(t, decoded.Frequencies)
		} else {
			assert.Equal(t, p.Frequencies, decoded.Frequencies)
		}
		assert.Equal(t, p.UnitID, decoded.UnitID)
		assert.Equal(t, p.PacketID, decoded.PacketID)
		assert.Equal(t, p.TransmissionSGUID, decoded.TransmissionSGUID)
		assert.Equal(t, p.ClientSGUID, decoded.ClientSGUID)
	})
}
