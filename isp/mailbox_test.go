package isp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/moffa90/go-ktdp/dpcd"
	"github.com/moffa90/go-ktdp/dpcd/mocks"
	"github.com/moffa90/go-ktdp/protocol"
)

// readsByte makes a ReadDPCD expectation fill its buffer with v.
func readsByte(v byte) func(uint32, []byte) error {
	return func(_ uint32, buf []byte) error {
		buf[0] = v
		return nil
	}
}

func readsBytes(data []byte) func(uint32, []byte) error {
	return func(_ uint32, buf []byte) error {
		copy(buf, data)
		return nil
	}
}

// expectStatusReads queues one CMD_STATUS read per value.
func expectStatusReads(m *mocks.MockTransport, values ...byte) []*gomock.Call {
	calls := make([]*gomock.Call, 0, len(values))
	for _, v := range values {
		calls = append(calls, m.EXPECT().ReadDPCD(protocol.AddrCmdStatus, gomock.Any()).DoAndReturn(readsByte(v)))
	}
	return calls
}

func repeat(v byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSendCmd(t *testing.T) {
	cmd := protocol.CmdChunkDataProcessed

	tests := []struct {
		name       string
		reads      []byte
		budget     time.Duration
		interval   time.Duration
		wantSleeps int
		check      func(t *testing.T, err error)
	}{
		{
			name:     "confirmed on first read",
			reads:    []byte{0x27},
			budget:   time.Second,
			interval: 20 * time.Millisecond,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:       "pending then confirmed",
			reads:      []byte{0xA7, 0xA7, 0x27},
			budget:     time.Second,
			interval:   20 * time.Millisecond,
			wantSleeps: 2,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:       "CRC failure",
			reads:      []byte{0xA7, 0x02},
			budget:     time.Second,
			interval:   20 * time.Millisecond,
			wantSleeps: 1,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, protocol.ErrCRCFailure) {
					t.Fatalf("error = %v, want ErrCRCFailure", err)
				}
			},
		},
		{
			name:     "failure status",
			reads:    []byte{0x06},
			budget:   time.Second,
			interval: 20 * time.Millisecond,
			check: func(t *testing.T, err error) {
				var pe *protocol.ProtocolError
				if !errors.As(err, &pe) {
					t.Fatalf("error = %v, want *protocol.ProtocolError", err)
				}
				if pe.Status != protocol.StatusSPIFlashFailure {
					t.Errorf("Status = %s, want %s", pe.Status, protocol.StatusSPIFlashFailure)
				}
				if pe.Operation != "chunk_data_processed" {
					t.Errorf("Operation = %q", pe.Operation)
				}
			},
		},
		{
			name:     "echo of another command",
			reads:    []byte{0x28},
			budget:   time.Second,
			interval: 20 * time.Millisecond,
			check: func(t *testing.T, err error) {
				var pe *protocol.ProtocolError
				if !errors.As(err, &pe) {
					t.Fatalf("error = %v, want *protocol.ProtocolError", err)
				}
				if pe.Status != protocol.Status(0x28) {
					t.Errorf("Status = 0x%02X, want 0x28", byte(pe.Status))
				}
			},
		},
		{
			name:       "timeout",
			reads:      repeat(0xA7, 5),
			budget:     100 * time.Millisecond,
			interval:   20 * time.Millisecond,
			wantSleeps: 5,
			check: func(t *testing.T, err error) {
				var te *TimeoutError
				if !errors.As(err, &te) {
					t.Fatalf("error = %v, want *TimeoutError", err)
				}
				if te.Step != "chunk_data_processed" || te.Budget != 100*time.Millisecond {
					t.Errorf("TimeoutError = %+v", te)
				}
			},
		},
		{
			name:       "budget not a multiple of the interval",
			reads:      repeat(0xA7, 3),
			budget:     50 * time.Millisecond,
			interval:   20 * time.Millisecond,
			wantSleeps: 3,
			check: func(t *testing.T, err error) {
				var te *TimeoutError
				if !errors.As(err, &te) {
					t.Fatalf("error = %v, want *TimeoutError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := mocks.NewMockTransport(ctrl)
			calls := []*gomock.Call{
				m.EXPECT().WriteDPCD(protocol.AddrCmdStatus, []byte{0xA7}).Return(nil),
			}
			calls = append(calls, expectStatusReads(m, tt.reads...)...)
			gomock.InOrder(calls...)

			rec := &sleepRecorder{}
			sess := newTestSession(m, rec)
			err := sess.sendCmd(context.Background(), cmd, tt.budget, tt.interval)

			tt.check(t, err)
			if rec.calls != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", rec.calls, tt.wantSleeps)
			}
		})
	}
}

func TestSendCmdRejectsUnconfirmedCommands(t *testing.T) {
	for _, cmd := range []protocol.Command{protocol.CmdExecuteRAMCode, protocol.CmdResetSystem} {
		t.Run(cmd.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sess := newTestSession(mocks.NewMockTransport(ctrl), &sleepRecorder{})
			err := sess.sendCmd(context.Background(), cmd, time.Second, 10*time.Millisecond)

			var pe *PreconditionError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %v, want *PreconditionError", err)
			}
		})
	}
}

func TestSendCmdCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockTransport(ctrl)
	m.EXPECT().WriteDPCD(protocol.AddrCmdStatus, []byte{0xB1}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess := newTestSession(m, &sleepRecorder{})
	err := sess.sendCmd(ctx, protocol.CmdEnableAuxForward, time.Second, 20*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestWaitCleared(t *testing.T) {
	tests := []struct {
		name       string
		reads      []byte
		wantSleeps int
		check      func(t *testing.T, err error)
	}{
		{
			name:       "cleared",
			reads:      []byte{0xA5, 0xA5, 0x00},
			wantSleeps: 2,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
		},
		{
			name:  "invalid image",
			reads: []byte{0x03},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, protocol.ErrInvalidImage) {
					t.Fatalf("error = %v, want ErrInvalidImage", err)
				}
			},
		},
		{
			name:  "whole register is the status",
			reads: []byte{0x25},
			check: func(t *testing.T, err error) {
				var pe *protocol.ProtocolError
				if !errors.As(err, &pe) || pe.Status != protocol.Status(0x25) {
					t.Fatalf("error = %v, want status 0x25", err)
				}
			},
		},
		{
			name:       "never cleared",
			reads:      repeat(0xA5, 15),
			wantSleeps: 15,
			check: func(t *testing.T, err error) {
				var te *TimeoutError
				if !errors.As(err, &te) {
					t.Fatalf("error = %v, want *TimeoutError", err)
				}
				if te.Step != "execute_ram_code" {
					t.Errorf("Step = %q, want execute_ram_code", te.Step)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := mocks.NewMockTransport(ctrl)
			gomock.InOrder(expectStatusReads(m, tt.reads...)...)

			rec := &sleepRecorder{}
			sess := newTestSession(m, rec)
			err := sess.waitCleared(context.Background(), protocol.ExecuteBudget, protocol.ExecuteInterval)

			tt.check(t, err)
			if rec.calls != tt.wantSleeps {
				t.Errorf("sleeps = %d, want %d", rec.calls, tt.wantSleeps)
			}
		})
	}
}

func TestWriteReplyData(t *testing.T) {
	t.Run("data then length", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := mocks.NewMockTransport(ctrl)
		gomock.InOrder(
			m.EXPECT().WriteDPCD(protocol.AddrReplyData, []byte{1, 2, 3, 4}).Return(nil),
			m.EXPECT().WriteDPCD(protocol.AddrReplyLen, []byte{4}).Return(nil),
		)

		sess := newTestSession(m, &sleepRecorder{})
		if err := sess.writeReplyData([]byte{1, 2, 3, 4}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("failed data write zeroes length", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		eio := errors.New("EIO")
		m := mocks.NewMockTransport(ctrl)
		gomock.InOrder(
			m.EXPECT().WriteDPCD(protocol.AddrReplyData, gomock.Any()).Return(eio),
			m.EXPECT().WriteDPCD(protocol.AddrReplyLen, []byte{0}).Return(nil),
		)

		sess := newTestSession(m, &sleepRecorder{})
		err := sess.writeReplyData([]byte{1, 2})

		var te *dpcd.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("error = %v, want *dpcd.TransportError", err)
		}
		if te.Op != dpcd.OpWrite || te.Addr != protocol.AddrReplyData || te.Len != 2 {
			t.Errorf("TransportError = %+v", te)
		}
		if !errors.Is(err, eio) {
			t.Error("error does not wrap the transport cause")
		}
	})

	t.Run("too long", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sess := newTestSession(mocks.NewMockTransport(ctrl), &sleepRecorder{})
		if err := sess.writeReplyData(make([]byte, protocol.ReplyDataSize+1)); err == nil {
			t.Fatal("expected error for 13 bytes of reply data")
		}
	})
}

func TestReadReplyData(t *testing.T) {
	t.Run("reads reported length", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := mocks.NewMockTransport(ctrl)
		gomock.InOrder(
			m.EXPECT().ReadDPCD(protocol.AddrReplyLen, gomock.Len(1)).DoAndReturn(readsByte(3)),
			m.EXPECT().ReadDPCD(protocol.AddrReplyData, gomock.Len(3)).DoAndReturn(readsBytes([]byte{7, 8, 9})),
		)

		buf := make([]byte, 6)
		sess := newTestSession(m, &sleepRecorder{})
		n, err := sess.readReplyData(buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 3 || buf[0] != 7 || buf[2] != 9 {
			t.Errorf("n = %d, buf = % X", n, buf)
		}
	})

	t.Run("zero length skips data read", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := mocks.NewMockTransport(ctrl)
		m.EXPECT().ReadDPCD(protocol.AddrReplyLen, gomock.Any()).DoAndReturn(readsByte(0))

		sess := newTestSession(m, &sleepRecorder{})
		n, err := sess.readReplyData(make([]byte, 6))
		if err != nil || n != 0 {
			t.Fatalf("n = %d, err = %v", n, err)
		}
	})

	t.Run("length exceeds buffer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := mocks.NewMockTransport(ctrl)
		m.EXPECT().ReadDPCD(protocol.AddrReplyLen, gomock.Any()).DoAndReturn(readsByte(7))

		sess := newTestSession(m, &sleepRecorder{})
		_, err := sess.readReplyData(make([]byte, 6))

		var be *BadReplyError
		if !errors.As(err, &be) {
			t.Fatalf("error = %v, want *BadReplyError", err)
		}
	})
}

func TestWithVendorOUI(t *testing.T) {
	prev := []byte{0x00, 0x22, 0xB9}
	vendor := protocol.VendorOUI[:]

	for _, fail := range []bool{false, true} {
		name := "success"
		if fail {
			name = "restores after failure"
		}

		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			m := mocks.NewMockTransport(ctrl)
			gomock.InOrder(
				m.EXPECT().ReadDPCD(protocol.AddrSourceOUI, gomock.Len(3)).DoAndReturn(readsBytes(prev)),
				m.EXPECT().WriteDPCD(protocol.AddrSourceOUI, vendor).Return(nil),
				m.EXPECT().WriteDPCD(protocol.AddrSourceOUI, prev).Return(nil),
			)

			boom := errors.New("boom")
			sess := newTestSession(m, &sleepRecorder{})
			err := sess.withVendorOUI(func() error {
				if fail {
					return boom
				}
				return nil
			})

			if fail && !errors.Is(err, boom) {
				t.Errorf("error = %v, want boom", err)
			}
			if !fail && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}

	t.Run("restore failure is logged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		m := mocks.NewMockTransport(ctrl)
		gomock.InOrder(
			m.EXPECT().ReadDPCD(protocol.AddrSourceOUI, gomock.Any()).DoAndReturn(readsBytes(prev)),
			m.EXPECT().WriteDPCD(protocol.AddrSourceOUI, vendor).Return(nil),
			m.EXPECT().WriteDPCD(protocol.AddrSourceOUI, prev).Return(errors.New("EIO")),
		)

		logger := &MockLogger{}
		sess := newTestSession(m, &sleepRecorder{}, WithLogger(logger))
		if err := sess.withVendorOUI(func() error { return nil }); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(logger.errorMsgs) != 1 {
			t.Errorf("logged %d errors, want 1", len(logger.errorMsgs))
		}
	})
}

func TestTransportErrorWrapping(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := mocks.NewMockTransport(ctrl)
	m.EXPECT().ReadDPCD(protocol.AddrParam, gomock.Any()).Return(errors.New("EIO"))

	sess := newTestSession(m, &sleepRecorder{})
	_, err := sess.readParam()

	var te *dpcd.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *dpcd.TransportError", err)
	}
	if te.Op != dpcd.OpRead || te.Addr != protocol.AddrParam || te.Len != 1 {
		t.Errorf("TransportError = %+v", te)
	}
}
