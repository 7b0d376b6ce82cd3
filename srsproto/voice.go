package srsproto

import (
	"encoding/binary"
	"math"
)

// Modulation is the radio modulation stamped on a frequency entry. Only
// the wire byte (0 = AM, 1 = FM) matters downstream; callers should prefer
// the named constants over comparing strings.
type Modulation uint8

const (
	ModulationAM Modulation = 0
	ModulationFM Modulation = 1
)

// Encryption identifies the encryption scheme of a frequency entry. This
// client never encrypts, but the field is part of the wire format.
type Encryption uint8

const EncryptionNone Encryption = 0

// sguidLen is the fixed length of a session identifier, in both its ASCII
// and wire-encoded forms.
const sguidLen = 22

// SGUID is a 22-byte session identifier.
type SGUID [sguidLen]byte

// Frequency is one 10-byte frequency entry within a voice packet.
type Frequency struct {
	Freq       float64
	Modulation Modulation
	Encryption Encryption
}

const frequencyEntrySize = 10

// VoicePacket is one UDP voice datagram's worth of payload.
type VoicePacket struct {
	AudioPart          []byte
	Frequencies        []Frequency
	UnitID             uint32
	PacketID           uint64
	HopCount           uint8
	TransmissionSGUID  SGUID
	ClientSGUID        SGUID
}

// fixedTailSize is the byte length of everything after the frequency
// block: unit_id(4) + packet_id(8) + hop_count(1) + two 22-byte sguids.
const fixedTailSize = 4 + 8 + 1 + sguidLen + sguidLen

// headerSize is the byte length of the three length-prefix fields.
const headerSize = 2 + 2 + 2

// VoiceCodec encodes and decodes UDP voice datagrams. It is stateless;
// every datagram is a single, self-contained packet.
type VoiceCodec struct{}

// Encode serializes p into a single UDP datagram. Encoding is infallible
// for well-formed packets (any AudioPart/Frequencies byte length fits in
// the 16-bit length prefixes used here).
func (VoiceCodec) Encode(p VoicePacket) []byte {
	audioLen := len(p.AudioPart)
	freqLen := len(p.Frequencies) * frequencyEntrySize
	total := headerSize + audioLen + freqLen + fixedTailSize

	buf := make([]byte, total)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(total))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(audioLen))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(freqLen))

	off := headerSize
	copy(buf[off:off+audioLen], p.AudioPart)
	off += audioLen

	for _, f := range p.Frequencies {
		binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(f.Freq))
		buf[off+8] = byte(f.Modulation)
		buf[off+9] = byte(f.Encryption)
		off += frequencyEntrySize
	}

	binary.LittleEndian.PutUint32(buf[off:off+4], p.UnitID)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:off+8], p.PacketID)
	off += 8
	buf[off] = p.HopCount
	off++
	copy(buf[off:off+sguidLen], p.TransmissionSGUID[:])
	off += sguidLen
	copy(buf[off:off+sguidLen], p.ClientSGUID[:])

	return buf
}

// Decode parses a single UDP datagram. It returns ok=false when the
// datagram is shorter than its own declared total length, which on a
// connectionless transport means the datagram was truncated in transit
// rather than merely incomplete — callers should treat a false return as
// a protocol error, not something to retry by reading more.
func (VoiceCodec) Decode(data []byte) (VoicePacket, bool) {
	var p VoicePacket

	if len(data) < headerSize {
		return p, false
	}
	total := int(binary.LittleEndian.Uint16(data[0:2]))
	audioLen := int(binary.LittleEndian.Uint16(data[2:4]))
	freqLen := int(binary.LittleEndian.Uint16(data[4:6]))

	if total != headerSize+audioLen+freqLen+fixedTailSize {
		return p, false
	}
	if len(data) < total {
		return p, false
	}

	off := headerSize
	p.AudioPart = append([]byte(nil), data[off:off+audioLen]...)
	off += audioLen

	n := freqLen / frequencyEntrySize
	p.Frequencies = make([]Frequency, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint64(data[off : off+8])
		p.Frequencies[i] = Frequency{
			Freq:       math.Float64frombits(bits),
			Modulation: Modulation(data[off+8]),
			Encryption: Encryption(data[off+9]),
		}
		off += frequencyEntrySize
	}

	p.UnitID = binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	p.PacketID = binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	p.HopCount = data[off]
	off++
	copy(p.TransmissionSGUID[:], data[off:off+sguidLen])
	off += sguidLen
	copy(p.ClientSGUID[:], data[off:off+sguidLen])

	return p, true
}
