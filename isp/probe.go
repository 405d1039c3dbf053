package isp

import (
	"context"
	"fmt"

	"github.com/moffa90/go-ktdp/protocol"
)

// ProbeDeviceInfo identifies the sink from its branch ID string and reads
// the 16-byte identification block at BRANCH_HW_REV. While the application
// runs, the active flash bank is queried as well; a failed query leaves
// ActiveBank at BankNone.
//
// The source OUI is restored before ProbeDeviceInfo returns.
//
// Example:
//
//	info, err := sess.ProbeDeviceInfo(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s running %s, FW %06X\n", info.ChipID, info.FwRunState, info.StdFwVer)
func (s *Session) ProbeDeviceInfo(ctx context.Context) (*protocol.DeviceInfo, error) {
	if err := s.acquire("probe device info"); err != nil {
		return nil, err
	}
	defer s.busy.Unlock()

	id := make([]byte, protocol.BranchIDSize)
	if err := s.read(protocol.AddrBranchIDString, id); err != nil {
		return nil, fmt.Errorf("read branch ID: %w", err)
	}

	chip, runState, branchID, err := protocol.ParseBranchID(id)
	if err != nil {
		return nil, &UnsupportedDeviceError{BranchID: branchID}
	}

	block := make([]byte, protocol.DeviceInfoSize)
	if err := s.read(protocol.AddrBranchHWRev, block); err != nil {
		return nil, fmt.Errorf("read device info: %w", err)
	}

	info, err := protocol.ParseDeviceInfo(block)
	if err != nil {
		return nil, err
	}
	info.ChipID = chip
	info.BranchID = branchID
	info.FwRunState = runState

	if runState == protocol.RunApp {
		info.DualBankSupported = true

		bank, err := s.activeFlashBank(ctx)
		if err != nil {
			s.logError("reading active flash bank failed", "error", err)
		}
		info.ActiveBank = bank
	}

	s.logDebug("device info",
		"branch_id", info.BranchID,
		"chip", info.ChipID.String(),
		"run_state", info.FwRunState.String(),
		"std_fw_ver", fmt.Sprintf("%06X", info.StdFwVer),
		"customer_fw_ver", fmt.Sprintf("%04X", info.CustomerFwVer),
		"active_bank", info.ActiveBank.String(),
	)

	return info, nil
}

// ActiveFlashBank asks the running application which flash bank it booted
// from. The source OUI is restored before it returns.
func (s *Session) ActiveFlashBank(ctx context.Context) (protocol.FlashBank, error) {
	if err := s.acquire("get active flash bank"); err != nil {
		return protocol.BankNone, err
	}
	defer s.busy.Unlock()

	return s.activeFlashBank(ctx)
}

func (s *Session) activeFlashBank(ctx context.Context) (protocol.FlashBank, error) {
	bank := protocol.BankNone

	err := s.withVendorOUI(func() error {
		defer s.clearCmdStatusQuietly()

		if err := s.sendCmd(ctx, protocol.CmdGetActiveFlashBank, protocol.ActiveBankBudget, protocol.ActiveBankInterval); err != nil {
			return err
		}

		v, err := s.readParam()
		if err != nil {
			return err
		}
		bank = protocol.ParseFlashBank(v)
		return nil
	})
	if err != nil {
		return protocol.BankNone, fmt.Errorf("get active flash bank: %w", err)
	}

	return bank, nil
}

// clearCmdStatusQuietly clears CMD_STATUS after an ancillary command and
// only logs a failure.
func (s *Session) clearCmdStatusQuietly() {
	if err := s.clearCmdStatus(); err != nil {
		s.logError("clearing CMD_STATUS failed", "error", err)
	}
}
