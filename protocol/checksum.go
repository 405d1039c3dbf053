package protocol

import (
	"encoding/binary"

	"github.com/sigurn/crc16"
)

// CRC16Seed is both the polynomial and the initial value of the chunk CRC.
const CRC16Seed = 0x1021

// CRC16Params describes the chunk CRC: polynomial 0x1021, seed 0x1021,
// MSB-first, no reflection, no final XOR.
var CRC16Params = crc16.Params{
	Poly:   0x1021,
	Init:   CRC16Seed,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x0000,
	Check:  0x5E86,
	Name:   "CRC-16/KINETIC-AUX",
}

var crc16Table = crc16.MakeTable(CRC16Params)

// CRC16 accumulates the CRC of a chunk streamed into the AUX window.
type CRC16 struct {
	crc uint16
}

// NewCRC16 returns an accumulator holding the seed.
func NewCRC16() *CRC16 {
	c := &CRC16{}
	c.Reset()
	return c
}

// Reset restores the seed.
func (c *CRC16) Reset() {
	c.crc = crc16.Init(crc16Table)
}

// Update feeds data into the accumulator.
func (c *CRC16) Update(data []byte) {
	c.crc = crc16.Update(c.crc, data, crc16Table)
}

// Sum16 returns the current accumulator value.
func (c *CRC16) Sum16() uint16 {
	return crc16.Complete(c.crc, crc16Table)
}

// PostBytes returns the 4-byte little-endian value written to the reply data
// register before CmdChunkDataProcessed. The upper 16 bits are zero.
func (c *CRC16) PostBytes() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(c.Sum16()))
	return buf
}

// ChecksumCRC16 computes the chunk CRC of data in one call.
func ChecksumCRC16(data []byte) uint16 {
	return crc16.Checksum(data, crc16Table)
}
