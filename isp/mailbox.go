package isp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-ktdp/dpcd"
	"github.com/moffa90/go-ktdp/protocol"
)

// read fills buf from addr, attaching the address and direction to failures.
func (s *Session) read(addr uint32, buf []byte) error {
	if err := s.dev.ReadDPCD(addr, buf); err != nil {
		return transportError(dpcd.OpRead, addr, len(buf), err)
	}
	return nil
}

// write stores data at addr, attaching the address and direction to failures.
func (s *Session) write(addr uint32, data []byte) error {
	if err := s.dev.WriteDPCD(addr, data); err != nil {
		return transportError(dpcd.OpWrite, addr, len(data), err)
	}
	return nil
}

func transportError(op dpcd.Op, addr uint32, n int, err error) error {
	var te *dpcd.TransportError
	if errors.As(err, &te) {
		return err
	}
	return &dpcd.TransportError{Op: op, Addr: addr, Len: n, Err: err}
}

// writeCmd issues cmd without waiting for it.
func (s *Session) writeCmd(cmd protocol.Command) error {
	return s.write(protocol.AddrCmdStatus, []byte{cmd.Pending()})
}

func (s *Session) readCmdStatus() (byte, error) {
	var buf [1]byte
	if err := s.read(protocol.AddrCmdStatus, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// clearCmdStatus writes 0x00 to CMD_STATUS.
func (s *Session) clearCmdStatus() error {
	return s.write(protocol.AddrCmdStatus, []byte{byte(protocol.StatusNone)})
}

func (s *Session) readParam() (byte, error) {
	var buf [1]byte
	if err := s.read(protocol.AddrParam, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (s *Session) writeParam(v byte) error {
	return s.write(protocol.AddrParam, []byte{v})
}

// sendCmd issues an echo command and waits for the sink to confirm it.
func (s *Session) sendCmd(ctx context.Context, cmd protocol.Command, budget, interval time.Duration) error {
	if cmd.Completion() != protocol.CompletionEcho {
		return &PreconditionError{
			Operation: cmd.String(),
			State:     s.State(),
			Reason:    "command is not confirmed by echo",
		}
	}

	if err := s.writeCmd(cmd); err != nil {
		return err
	}
	return s.poll(ctx, cmd, budget, interval)
}

// waitCleared waits for the sink to clear CMD_STATUS after EXECUTE_RAM_CODE.
func (s *Session) waitCleared(ctx context.Context, budget, interval time.Duration) error {
	return s.poll(ctx, protocol.CmdExecuteRAMCode, budget, interval)
}

// poll reads CMD_STATUS until cmd completes, fails or the budget runs out.
// Each iteration reads, then sleeps for interval, then charges interval
// against the budget.
func (s *Session) poll(ctx context.Context, cmd protocol.Command, budget, interval time.Duration) error {
	for remaining := budget; remaining > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := s.readCmdStatus()
		if err != nil {
			return err
		}

		switch outcome, status := protocol.Evaluate(cmd, v); outcome {
		case protocol.OutcomeDone:
			return nil
		case protocol.OutcomeFailed:
			return &protocol.ProtocolError{Operation: cmd.String(), Status: status}
		}

		if err := s.config.Sleep(ctx, interval); err != nil {
			return err
		}

		if interval >= remaining {
			remaining = 0
		} else {
			remaining -= interval
		}
	}

	return &TimeoutError{Step: cmd.String(), Budget: budget}
}

// writeReplyData stores data in ISP_REPLY_DATA and its length in ISP_REPLY_LEN.
// The length is zeroed when the data write fails.
func (s *Session) writeReplyData(data []byte) error {
	if len(data) > protocol.ReplyDataSize {
		return fmt.Errorf("reply data of %d bytes exceeds the %d byte register", len(data), protocol.ReplyDataSize)
	}

	if err := s.write(protocol.AddrReplyData, data); err != nil {
		if zerr := s.write(protocol.AddrReplyLen, []byte{0}); zerr != nil {
			s.logError("clearing reply length failed", "error", zerr)
		}
		return err
	}

	return s.write(protocol.AddrReplyLen, []byte{byte(len(data))})
}

// readReplyData reads ISP_REPLY_LEN bytes of ISP_REPLY_DATA into buf.
func (s *Session) readReplyData(buf []byte) (int, error) {
	var n [1]byte
	if err := s.read(protocol.AddrReplyLen, n[:]); err != nil {
		return 0, err
	}

	length := int(n[0])
	if length > len(buf) {
		return 0, &BadReplyError{
			Reason: fmt.Sprintf("reply length %d exceeds buffer of %d bytes", length, len(buf)),
		}
	}

	if length > 0 {
		if err := s.read(protocol.AddrReplyData, buf[:length]); err != nil {
			return 0, err
		}
	}
	return length, nil
}
