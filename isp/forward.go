package isp

import (
	"context"
	"fmt"

	"github.com/moffa90/go-ktdp/protocol"
)

// EnableAuxForward forwards AUX transactions to the downstream port so
// that a device behind the converter can be reached. CMD_STATUS is cleared
// and the source OUI restored whether or not the sink confirms.
//
// Example:
//
//	if err := sess.EnableAuxForward(ctx, 1); err != nil {
//	    return err
//	}
//	defer sess.DisableAuxForward(ctx)
func (s *Session) EnableAuxForward(ctx context.Context, port byte) error {
	if err := s.acquire("enable AUX forward"); err != nil {
		return err
	}
	defer s.busy.Unlock()

	err := s.withVendorOUI(func() error {
		if err := s.writeParam(port); err != nil {
			return err
		}

		defer s.clearCmdStatusQuietly()
		return s.sendCmd(ctx, protocol.CmdEnableAuxForward, protocol.AuxForwardBudget, protocol.AuxForwardInterval)
	})
	if err != nil {
		return fmt.Errorf("enable AUX forward to port %d: %w", port, err)
	}

	s.logDebug("AUX forward enabled", "port", port)
	return nil
}

// DisableAuxForward stops AUX forwarding.
func (s *Session) DisableAuxForward(ctx context.Context) error {
	if err := s.acquire("disable AUX forward"); err != nil {
		return err
	}
	defer s.busy.Unlock()

	err := s.withVendorOUI(func() error {
		defer s.clearCmdStatusQuietly()
		return s.sendCmd(ctx, protocol.CmdDisableAuxForward, protocol.AuxForwardBudget, protocol.AuxForwardInterval)
	})
	if err != nil {
		return fmt.Errorf("disable AUX forward: %w", err)
	}

	s.logDebug("AUX forward disabled")
	return nil
}
