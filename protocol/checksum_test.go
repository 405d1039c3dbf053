package protocol

import (
	"bytes"
	"testing"
)

// referenceCRC16 is the bit-serial form of the chunk CRC.
func referenceCRC16(accum uint16, data []byte) uint16 {
	for _, d := range data {
		for i := 0; i < 8; i++ {
			flag := d ^ byte(accum>>8)
			accum <<= 1
			if flag&0x80 != 0 {
				accum ^= CRC16Seed
			}
			d <<= 1
		}
	}
	return accum
}

func TestCRC16(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint16
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: 0x1021, // seed
		},
		{
			name:     "single byte zero",
			data:     []byte{0x00},
			expected: 0x3331,
		},
		{
			name:     "test data",
			data:     []byte{0x01, 0x02, 0x03, 0x04},
			expected: 0xA752,
		},
		{
			name:     "check string",
			data:     []byte("123456789"),
			expected: 0x5E86,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crc := NewCRC16()
			crc.Update(tt.data)
			if got := crc.Sum16(); got != tt.expected {
				t.Errorf("Sum16() = 0x%04X, want 0x%04X", got, tt.expected)
			}
			if got := referenceCRC16(CRC16Seed, tt.data); got != tt.expected {
				t.Errorf("referenceCRC16() = 0x%04X, want 0x%04X", got, tt.expected)
			}
			if got := ChecksumCRC16(tt.data); got != tt.expected {
				t.Errorf("ChecksumCRC16() = 0x%04X, want 0x%04X", got, tt.expected)
			}
		})
	}
}

func TestCRC16Splits(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04}
	want := referenceCRC16(CRC16Seed, data)

	for _, split := range []int{1, 2, 3} {
		crc := NewCRC16()
		crc.Update(data[:split])
		crc.Update(data[split:])
		if got := crc.Sum16(); got != want {
			t.Errorf("split %d+%d: Sum16() = 0x%04X, want 0x%04X", split, len(data)-split, got, want)
		}
	}
}

func TestCRC16ChunkingIndependent(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}

	want := referenceCRC16(CRC16Seed, data)

	for _, size := range []int{1, 3, 16, 17, 255, 999} {
		crc := NewCRC16()
		for off := 0; off < len(data); off += size {
			end := off + size
			if end > len(data) {
				end = len(data)
			}
			crc.Update(data[off:end])
		}
		if got := crc.Sum16(); got != want {
			t.Errorf("chunk size %d: Sum16() = 0x%04X, want 0x%04X", size, got, want)
		}
	}
}

func TestCRC16BeyondWindow(t *testing.T) {
	data := make([]byte, 3*AuxWindowSize+5)
	for i := range data {
		data[i] = byte(i ^ i>>9)
	}

	crc := NewCRC16()
	for off := 0; off < len(data); off += 4096 {
		end := off + 4096
		if end > len(data) {
			end = len(data)
		}
		crc.Update(data[off:end])
	}

	if got, want := crc.Sum16(), ChecksumCRC16(data); got != want {
		t.Errorf("Sum16() = 0x%04X, want 0x%04X", got, want)
	}
	if got, want := crc.Sum16(), referenceCRC16(CRC16Seed, data); got != want {
		t.Errorf("Sum16() = 0x%04X, reference 0x%04X", got, want)
	}
}

func TestCRC16Reset(t *testing.T) {
	crc := NewCRC16()
	crc.Update([]byte{0xDE, 0xAD})
	crc.Reset()
	if got := crc.Sum16(); got != CRC16Seed {
		t.Errorf("after Reset Sum16() = 0x%04X, want 0x%04X", got, CRC16Seed)
	}
}

func TestCRC16PostBytes(t *testing.T) {
	crc := NewCRC16()
	crc.Update([]byte{0x01, 0x02, 0x03, 0x04})

	want := []byte{0x52, 0xA7, 0x00, 0x00}
	if got := crc.PostBytes(); !bytes.Equal(got, want) {
		t.Errorf("PostBytes() = % X, want % X", got, want)
	}
}

func BenchmarkCRC16(b *testing.B) {
	data := make([]byte, AuxWindowSize)
	for i := range data {
		data[i] = byte(i)
	}

	crc := NewCRC16()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		crc.Reset()
		crc.Update(data)
	}
}
