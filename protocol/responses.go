package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Branch device ID strings reported at AddrBranchIDString.
const (
	BranchIDJaguarIROM  = "5010IR"
	BranchIDJaguarApp   = "KT50X0"
	BranchIDMustangIROM = "5210IR"
	BranchIDMustangApp  = "KT52X0"
)

var branchIDs = map[string]struct {
	chip  ChipID
	state FwRunState
}{
	BranchIDJaguarIROM:  {ChipJaguar5000, RunIROM},
	BranchIDJaguarApp:   {ChipJaguar5000, RunApp},
	BranchIDMustangIROM: {ChipMustang5200, RunIROM},
	BranchIDMustangApp:  {ChipMustang5200, RunApp},
}

// ParseBranchID maps the 6-byte branch device ID string to a chip and run state.
// Trailing NUL bytes are ignored.
func ParseBranchID(data []byte) (ChipID, FwRunState, string, error) {
	if len(data) != BranchIDSize {
		return ChipUnknown, RunIROM, "", fmt.Errorf("invalid branch ID length: got %d bytes, expected %d", len(data), BranchIDSize)
	}

	id := string(bytes.TrimRight(data, "\x00"))
	entry, ok := branchIDs[id]
	if !ok {
		return ChipUnknown, RunIROM, id, fmt.Errorf("unsupported branch ID %q", id)
	}

	return entry.chip, entry.state, id, nil
}

// ParseDeviceInfo decodes the 16-byte identification block read at AddrBranchHWRev.
//
// Data format (offsets relative to 0x509):
//
//	[0] chip rev  [1..3] std FW ver (BE)  [6] customer FW ver high
//	[11] customer FW ver low  [12] customer project ID  [13] chip type
//
// ChipID, FwRunState and ActiveBank are left for the caller.
func ParseDeviceInfo(data []byte) (*DeviceInfo, error) {
	if len(data) != DeviceInfoSize {
		return nil, fmt.Errorf("invalid data length for device info: got %d bytes, expected %d", len(data), DeviceInfoSize)
	}

	info := &DeviceInfo{
		ChipRev:           data[0],
		StdFwVer:          uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]),
		CustomerProjectID: data[12],
		CustomerFwVer:     uint16(data[6])<<8 | uint16(data[11]),
		ChipType:          data[13],
		ActiveBank:        BankNone,
	}

	return info, nil
}

// FlashInfoReplySize is the number of reply data bytes describing the SPI flash.
const FlashInfoReplySize = 6

// ParseFlashInfo decodes the reply data left by the ISP driver after it boots.
//
// Data format (big-endian):
//
//	[FLASH_ID(2)][FLASH_SIZE_KIB(2)][PROGRAM_TIME_S(2)]
//
// Short replies are zero-extended. A programming time of zero is replaced
// with DefaultFlashProgramTime.
func ParseFlashInfo(data []byte) (FlashInfo, error) {
	if len(data) > FlashInfoReplySize {
		return FlashInfo{}, fmt.Errorf("invalid data length for flash info: got %d bytes, maximum is %d", len(data), FlashInfoReplySize)
	}

	var buf [FlashInfoReplySize]byte
	copy(buf[:], data)

	info := FlashInfo{
		ID:           binary.BigEndian.Uint16(buf[0:2]),
		SizeKiB:      binary.BigEndian.Uint16(buf[2:4]),
		ProgramTimeS: binary.BigEndian.Uint16(buf[4:6]),
	}
	if info.ProgramTimeS == 0 {
		info.ProgramTimeS = DefaultFlashProgramTime
	}

	return info, nil
}

// InstallProgressStep is the synthesized progress added per install poll so
// that FlashProgramCount is reached after programTimeS seconds.
func InstallProgressStep(programTimeS uint16) uint32 {
	if programTimeS == 0 {
		programTimeS = DefaultFlashProgramTime
	}
	polls := (uint32(programTimeS) * 1000) / uint32(InstallPollInterval.Milliseconds())
	if polls == 0 {
		return FlashProgramCount
	}
	return FlashProgramCount / polls
}
