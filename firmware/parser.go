package firmware

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// containerHeaderSize is the length prefix holding the ISP driver size.
const containerHeaderSize = 4

// Parse parses a firmware container from the given file path.
//
// Example:
//
//	img, err := firmware.Parse("KTM5010.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("App ID: %s\n", img.Info.AppID)
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader parses a firmware container from any io.Reader.
func ParseReader(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes parses a firmware container held in memory.
// The returned Image references data.
//
// Container format:
//
//	[ISP_DRV_SIZE(4, LE)][ISP_DRV(ISP_DRV_SIZE)][APP_FW(0x80000)]
func ParseBytes(data []byte) (*Image, error) {
	if len(data) < containerHeaderSize {
		return nil, &FormatError{
			Field:  "container",
			Reason: fmt.Sprintf("got %d bytes, need at least %d", len(data), containerHeaderSize),
		}
	}

	drvSize := binary.LittleEndian.Uint32(data[:containerHeaderSize])
	if drvSize == 0 {
		return nil, &FormatError{Field: LabelISPDriver, Reason: "ISP driver is empty"}
	}

	rest := data[containerHeaderSize:]
	if uint64(drvSize) > uint64(len(rest)) {
		return nil, &FormatError{
			Field:  LabelISPDriver,
			Reason: fmt.Sprintf("size %d exceeds the %d bytes remaining", drvSize, len(rest)),
		}
	}

	return New(rest[:drvSize], rest[drvSize:])
}
