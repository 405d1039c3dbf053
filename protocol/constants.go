package protocol

import "time"

// ProtocolVersion names the Kinetic secure AUX-ISP revision implemented by this library.
const ProtocolVersion = "Jaguar/Mustang secure AUX-ISP"

// Standard DPCD registers used by the engine.
const (
	// AddrSourceOUI is the IEEE source OUI register (3 bytes)
	AddrSourceOUI uint32 = 0x00300

	// AddrBranchIDString is the branch device identification string (6 bytes)
	AddrBranchIDString uint32 = 0x00503

	// AddrBranchHWRev is the start of the 16-byte identification block
	AddrBranchHWRev uint32 = 0x00509
)

// Kinetic proprietary DPCD registers, valid in both application and ISP driver.
const (
	// AddrCmdStatus holds the command id OR-ed with ConfirmationBit
	AddrCmdStatus uint32 = 0x0050D

	// AddrParam is a one-byte scratch register for parameters and status
	AddrParam uint32 = 0x0050E

	// AddrReplyLen holds the number of valid bytes in the reply data register
	AddrReplyLen uint32 = 0x00513

	// AddrReplyData is the 12-byte reply data register (0x514 ~ 0x51F)
	AddrReplyData uint32 = 0x00514

	// AddrAuxWindow is the start of the 32 KiB AUX data window
	AddrAuxWindow uint32 = 0x80000

	// AddrAuxWindowEnd is the last address of the AUX window (inclusive)
	AddrAuxWindowEnd = AddrAuxWindow + AuxWindowSize - 1
)

// Register sizes.
const (
	OUISize           = 3
	BranchIDSize      = 6
	DeviceInfoSize    = 16
	ReplyDataSize     = 12
	AuxWindowSize     = 0x8000
	MaxAuxTransaction = 16
)

// ConfirmationBit is set by the host while a command is pending and cleared by the sink once processed.
const ConfirmationBit = 0x80

// CommandMask selects the command id or status code from CMD_STATUS.
const CommandMask = 0x7F

// VendorOUI is the MegaChips America OUI that unlocks the vendor command space.
var VendorOUI = [OUISize]byte{0x00, 0x60, 0xAD}

// Polling budgets and intervals for each mailbox step.
const (
	PrepareISPBudget   = 500 * time.Millisecond
	PrepareISPInterval = 10 * time.Millisecond

	CodeLoadingBudget   = 500 * time.Millisecond
	CodeLoadingInterval = 10 * time.Millisecond

	ISPDriverChunkBudget   = 10 * time.Second
	ISPDriverChunkInterval = 50 * time.Millisecond

	ExecuteBudget   = 1500 * time.Millisecond
	ExecuteInterval = 100 * time.Millisecond

	FwUpdateModeBudget   = 200 * time.Second
	FwUpdateModeInterval = 500 * time.Millisecond

	FwChunkBudget   = 10 * time.Second
	FwChunkInterval = 200 * time.Millisecond

	InstallPollLimit    = 1500
	InstallPollInterval = 50 * time.Millisecond

	ActiveBankBudget   = 100 * time.Millisecond
	ActiveBankInterval = 20 * time.Millisecond

	AuxForwardBudget   = 1 * time.Second
	AuxForwardInterval = 20 * time.Millisecond
)

// FlashProgramCount is the share of the progress total reserved for the
// device-side flash programming that happens during INSTALL_IMAGES.
const FlashProgramCount = 0x20000

// DefaultFlashProgramTime is used when the ISP driver reports a programming time of zero.
const DefaultFlashProgramTime = 10

// DualBankMinFlashKiB is the smallest flash that holds two 1 MiB banks.
const DualBankMinFlashKiB = 2048
