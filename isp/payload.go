package isp

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-ktdp/protocol"
)

// sendPayload streams data into the AUX window in transactions of at most
// 16 bytes. Every 32 KiB chunk, and the tail of data, is closed by posting
// the chunk CRC and issuing CHUNK_DATA_PROCESSED.
func (s *Session) sendPayload(ctx context.Context, data []byte, budget, interval time.Duration) error {
	s.auxAddr = protocol.AddrAuxWindow
	s.crc.Reset()

	for len(data) > 0 {
		n := len(data)
		if n > protocol.MaxAuxTransaction {
			n = protocol.MaxAuxTransaction
		}
		slice := data[:n]
		last := n == len(data)

		s.crc.Update(slice)

		if s.auxAddr+uint32(n) > protocol.AddrAuxWindowEnd || last {
			if err := s.writeReplyData(s.crc.PostBytes()); err != nil {
				return fmt.Errorf("post chunk CRC: %w", err)
			}
			s.crc.Reset()
		}

		if err := s.write(s.auxAddr, slice); err != nil {
			return err
		}

		s.auxAddr += uint32(n)
		s.advance(uint32(n))
		data = data[n:]

		if s.auxAddr > protocol.AddrAuxWindowEnd || len(data) == 0 {
			if err := s.sendCmd(ctx, protocol.CmdChunkDataProcessed, budget, interval); err != nil {
				return err
			}
			s.auxAddr = protocol.AddrAuxWindow
			s.reportProgress()
		}
	}

	return nil
}
