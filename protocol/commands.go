package protocol

import (
	"encoding/binary"
	"fmt"
)

// Command is a Kinetic proprietary command id written to CMD_STATUS.
type Command byte

// Command ids. The host writes id|ConfirmationBit to AddrCmdStatus.
const (
	// CmdPrepareForISPMode makes DPCD 0x514 ~ 0x517 writable while the application runs
	CmdPrepareForISPMode Command = 0x23

	// CmdEnterCodeLoadingMode prepares the sink to receive the ISP driver
	CmdEnterCodeLoadingMode Command = 0x24

	// CmdExecuteRAMCode boots the uploaded ISP driver
	CmdExecuteRAMCode Command = 0x25

	// CmdEnterFwUpdateMode announces the section sizes; the sink may erase a bank
	CmdEnterFwUpdateMode Command = 0x26

	// CmdChunkDataProcessed tells the sink a chunk of the AUX window is complete
	CmdChunkDataProcessed Command = 0x27

	// CmdInstallImages commits the streamed images to flash
	CmdInstallImages Command = 0x28

	// CmdResetSystem restarts the sink
	CmdResetSystem Command = 0x29

	// CmdEnableAuxForward forwards AUX to the downstream port in PARAM
	CmdEnableAuxForward Command = 0x31

	// CmdDisableAuxForward stops AUX forwarding
	CmdDisableAuxForward Command = 0x32

	// CmdGetActiveFlashBank reports the running bank in PARAM
	CmdGetActiveFlashBank Command = 0x33
)

// Completion describes how the sink acknowledges a command.
type Completion int

const (
	// CompletionEcho: the sink echoes the id with the confirmation bit cleared.
	CompletionEcho Completion = iota

	// CompletionCleared: the sink clears CMD_STATUS to 0x00.
	CompletionCleared

	// CompletionNone: no acknowledgement is awaited.
	CompletionNone
)

// Completion returns the acknowledgement discipline of c.
func (c Command) Completion() Completion {
	switch c {
	case CmdExecuteRAMCode:
		return CompletionCleared
	case CmdResetSystem:
		return CompletionNone
	default:
		return CompletionEcho
	}
}

// Pending returns the value written to CMD_STATUS to issue c.
func (c Command) Pending() byte {
	return byte(c) | ConfirmationBit
}

func (c Command) String() string {
	switch c {
	case CmdPrepareForISPMode:
		return "prepare_for_isp_mode"
	case CmdEnterCodeLoadingMode:
		return "enter_code_loading_mode"
	case CmdExecuteRAMCode:
		return "execute_ram_code"
	case CmdEnterFwUpdateMode:
		return "enter_fw_update_mode"
	case CmdChunkDataProcessed:
		return "chunk_data_processed"
	case CmdInstallImages:
		return "install_images"
	case CmdResetSystem:
		return "reset_system"
	case CmdEnableAuxForward:
		return "enable_aux_forward"
	case CmdDisableAuxForward:
		return "disable_aux_forward"
	case CmdGetActiveFlashBank:
		return "get_active_flash_bank"
	default:
		return fmt.Sprintf("command_0x%02x", byte(c))
	}
}

// Outcome is the result of evaluating one CMD_STATUS read.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeDone
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Evaluate interprets a CMD_STATUS value read back after issuing cmd.
// The returned status is only meaningful for OutcomeFailed.
//
// For echo commands the low 7 bits of a foreign value are the status code.
// For EXECUTE_RAM_CODE the whole register is returned as status, matching
// what the ISP driver leaves behind.
func Evaluate(cmd Command, reg byte) (Outcome, Status) {
	switch cmd.Completion() {
	case CompletionCleared:
		if reg == byte(StatusNone) {
			return OutcomeDone, StatusNone
		}
		if reg&ConfirmationBit == 0 {
			return OutcomeFailed, Status(reg)
		}
		return OutcomePending, StatusNone
	case CompletionNone:
		return OutcomeDone, StatusNone
	default:
		switch reg {
		case cmd.Pending():
			return OutcomePending, StatusNone
		case byte(cmd):
			return OutcomeDone, StatusNone
		default:
			return OutcomeFailed, Status(reg & CommandMask)
		}
	}
}

// FwUpdateSizes are the section sizes announced with CmdEnterFwUpdateMode.
type FwUpdateSizes struct {
	ESMPayload  uint32
	ArmAppCode  uint32
	AppInitData uint16
	CMDBBlock   uint16
	ESMXIP      bool
}

// BuildFwUpdateHeader packs the 12-byte reply data written before CmdEnterFwUpdateMode.
//
// Layout (little-endian):
//
//	[ESM(4)][APP(4)][APP_INIT(2)][CMDB|XIP<<15(2)]
func BuildFwUpdateHeader(s FwUpdateSizes) ([ReplyDataSize]byte, error) {
	var hdr [ReplyDataSize]byte
	if s.CMDBBlock&0x8000 != 0 {
		return hdr, fmt.Errorf("CMDB size 0x%X overlaps the XIP flag", s.CMDBBlock)
	}

	cmdb := s.CMDBBlock
	if s.ESMXIP {
		cmdb |= 0x8000
	}

	binary.LittleEndian.PutUint32(hdr[0:4], s.ESMPayload)
	binary.LittleEndian.PutUint32(hdr[4:8], s.ArmAppCode)
	binary.LittleEndian.PutUint16(hdr[8:10], s.AppInitData)
	binary.LittleEndian.PutUint16(hdr[10:12], cmdb)

	return hdr, nil
}

// BuildCodeSize packs the ISP driver length written before CmdEnterCodeLoadingMode.
func BuildCodeSize(size uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, size)
	return buf
}
