package protocol

import "fmt"

// Status is a status code reported in the low 7 bits of CMD_STATUS or in PARAM.
type Status byte

// Status codes reported by the application and the ISP driver.
const (
	// StatusNone indicates no status / command register cleared
	StatusNone Status = 0x00

	// StatusInvalidInfo indicates the announced sizes were rejected
	StatusInvalidInfo Status = 0x01

	// StatusCRCFailure indicates the posted CRC did not match the chunk data
	StatusCRCFailure Status = 0x02

	// StatusInvalidImage indicates the ISP driver or an image failed validation
	StatusInvalidImage Status = 0x03

	// StatusSecureEnabled is reported in PARAM by a driver that requires certificates
	StatusSecureEnabled Status = 0x04

	// StatusSecureDisabled is reported in PARAM by a driver that skips certificates
	StatusSecureDisabled Status = 0x05

	// StatusSPIFlashFailure indicates an erase or program failure
	StatusSPIFlashFailure Status = 0x06
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusInvalidInfo:
		return "invalid info"
	case StatusCRCFailure:
		return "CRC failure"
	case StatusInvalidImage:
		return "invalid image"
	case StatusSecureEnabled:
		return "secure enabled"
	case StatusSecureDisabled:
		return "secure disabled"
	case StatusSPIFlashFailure:
		return "SPI flash failure"
	default:
		return fmt.Sprintf("unknown status 0x%02X", byte(s))
	}
}

// ChipID identifies the Kinetic chip family.
type ChipID int

const (
	ChipUnknown ChipID = iota
	ChipJaguar5000
	ChipMustang5200
)

func (c ChipID) String() string {
	switch c {
	case ChipJaguar5000:
		return "Jaguar (KTM50X0)"
	case ChipMustang5200:
		return "Mustang (KTM52X0)"
	default:
		return "unknown"
	}
}

// FwRunState is the firmware currently executing on the sink.
type FwRunState int

const (
	RunIROM FwRunState = iota
	RunBoot
	RunApp
	RunAppBoot
)

func (s FwRunState) String() string {
	switch s {
	case RunIROM:
		return "iROM"
	case RunBoot:
		return "boot code"
	case RunApp:
		return "application"
	case RunAppBoot:
		return "application boot"
	default:
		return "unknown"
	}
}

// FlashBank is the active SPI flash bank.
type FlashBank byte

const (
	Bank0     FlashBank = 0
	Bank1     FlashBank = 1
	BankTotal FlashBank = 2
	BankNone  FlashBank = 0xFF
)

func (b FlashBank) String() string {
	switch b {
	case Bank0:
		return "bank 0"
	case Bank1:
		return "bank 1"
	case BankTotal:
		return "bank total"
	default:
		return "none"
	}
}

// ParseFlashBank maps a PARAM value to a FlashBank.
func ParseFlashBank(v byte) FlashBank {
	switch FlashBank(v) {
	case Bank0, Bank1, BankTotal:
		return FlashBank(v)
	default:
		return BankNone
	}
}

// DeviceInfo is an immutable snapshot of the sink's identification block.
type DeviceInfo struct {
	// ChipID is derived from the branch ID string
	ChipID ChipID

	// BranchID is the raw 6-byte branch device ID string
	BranchID string

	// ChipRev is DPCD 0x509
	ChipRev byte

	// StdFwVer is DPCD 0x50A ~ 0x50C, big-endian (24 bits)
	StdFwVer uint32

	// CustomerProjectID is DPCD 0x515
	CustomerProjectID byte

	// CustomerFwVer is DPCD 0x50F (high) and 0x514 (low)
	CustomerFwVer uint16

	// ChipType is DPCD 0x516
	ChipType byte

	// FwRunState is the firmware currently executing
	FwRunState FwRunState

	// DualBankSupported is true while the application runs
	DualBankSupported bool

	// ActiveBank is the running flash bank, BankNone when unknown
	ActiveBank FlashBank
}

// FlashInfo is the SPI flash description reported by the ISP driver.
type FlashInfo struct {
	// ID is the JEDEC-style flash id, zero when no flash answered
	ID uint16

	// SizeKiB is the flash size in KiB
	SizeKiB uint16

	// ProgramTimeS is the expected programming time in seconds
	ProgramTimeS uint16
}

// DualBank reports whether the flash is large enough for two banks.
func (f FlashInfo) DualBank() bool {
	return f.SizeKiB >= DualBankMinFlashKiB
}
