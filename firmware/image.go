package firmware

import (
	"encoding/binary"
	"fmt"
)

// Image is a parsed Kinetic secure firmware container.
// An Image is read-only once created and may be shared between sessions.
type Image struct {
	// ISPDriver is the RAM-resident driver uploaded before the update
	ISPDriver []byte

	// App is the 512 KiB application image
	App []byte

	// Info is decoded from the App-ID block at the end of App
	Info *AppInfo
}

// AppInfo is the decoded App-ID block.
type AppInfo struct {
	// AppID is the 4-character application identifier
	AppID string

	// ESMSize is the ESM payload size in bytes
	ESMSize uint32

	// AppSize is the ARM application code size in bytes
	AppSize uint32

	// InitSize is the App init data size in bytes
	InitSize uint16

	// CMDBSize is the CMDB block size in bytes, zero when absent
	CMDBSize uint16

	// ESMXIP is set when the ESM executes in place
	ESMXIP bool

	// StdFwVer is the standard firmware version (24 bits)
	StdFwVer uint32

	// CustomerProjectID identifies the customer project
	CustomerProjectID byte

	// CustomerFwVer is the customer firmware version
	CustomerFwVer uint16
}

// FormatError describes an invalid container or App-ID block.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid firmware %s: %s", e.Field, e.Reason)
}

// New builds an Image from its two sub-images and decodes the App-ID block.
// The slices are referenced, not copied.
//
// Example:
//
//	img, err := firmware.New(driver, app)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(ispDriver, app []byte) (*Image, error) {
	if len(ispDriver) == 0 {
		return nil, &FormatError{Field: LabelISPDriver, Reason: "ISP driver is empty"}
	}
	if len(app) != AppImageSize {
		return nil, &FormatError{
			Field:  LabelAppFW,
			Reason: fmt.Sprintf("got %d bytes, expected %d", len(app), AppImageSize),
		}
	}

	info, err := ParseAppInfo(app[AppIDStart:])
	if err != nil {
		return nil, err
	}

	return &Image{ISPDriver: ispDriver, App: app, Info: info}, nil
}

// SubImage returns a sub-image by label.
func (img *Image) SubImage(label string) ([]byte, error) {
	switch label {
	case LabelISPDriver:
		return img.ISPDriver, nil
	case LabelAppFW:
		return img.App, nil
	default:
		return nil, fmt.Errorf("no sub-image labelled %q", label)
	}
}

// Validate checks that App is a full APP_FW image and that Info describes
// sections that fit in it. New and Parse only return valid images.
func (img *Image) Validate() error {
	if len(img.App) != AppImageSize {
		return &FormatError{
			Field:  LabelAppFW,
			Reason: fmt.Sprintf("got %d bytes, expected %d", len(img.App), AppImageSize),
		}
	}
	if img.Info == nil {
		return &FormatError{Field: "app id block", Reason: "not decoded"}
	}
	return img.Info.Validate()
}

// Section returns the bytes of s within App. The image must be valid.
func (img *Image) Section(s Section) []byte {
	return img.App[s.Offset : s.Offset+s.Size]
}

// MarshalBinary encodes the container: [isp_drv_size(4, LE)][ISP_DRV][APP_FW].
func (img *Image) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4, 4+len(img.ISPDriver)+len(img.App))
	binary.LittleEndian.PutUint32(buf, uint32(len(img.ISPDriver)))
	buf = append(buf, img.ISPDriver...)
	return append(buf, img.App...), nil
}

// ParseAppInfo decodes and validates a 32-byte App-ID block.
//
// Block format:
//
//	[APP_ID(4)][ESM(4, LE)][APP(4, LE)][INIT(2, LE)][CMDB|XIP<<15(2, LE)]
//	[STD_FW_VER(3, BE)][PROJECT_ID(1)][CUSTOMER_FW_VER(2, BE)][RESERVED(10)]
func ParseAppInfo(data []byte) (*AppInfo, error) {
	if len(data) != AppIDSize {
		return nil, &FormatError{
			Field:  "app id block",
			Reason: fmt.Sprintf("got %d bytes, expected %d", len(data), AppIDSize),
		}
	}

	cmdb := binary.LittleEndian.Uint16(data[14:16])
	info := &AppInfo{
		AppID:             string(data[0:4]),
		ESMSize:           binary.LittleEndian.Uint32(data[4:8]),
		AppSize:           binary.LittleEndian.Uint32(data[8:12]),
		InitSize:          binary.LittleEndian.Uint16(data[12:14]),
		CMDBSize:          cmdb &^ xipFlag,
		ESMXIP:            cmdb&xipFlag != 0,
		StdFwVer:          uint32(data[16])<<16 | uint32(data[17])<<8 | uint32(data[18]),
		CustomerProjectID: data[19],
		CustomerFwVer:     binary.BigEndian.Uint16(data[20:22]),
	}

	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// Validate checks every section size against its block.
func (a *AppInfo) Validate() error {
	if a.ESMSize > ESMPayloadMax {
		return &FormatError{Field: SectionESM, Reason: fmt.Sprintf("size 0x%X exceeds 0x%X", a.ESMSize, ESMPayloadMax)}
	}
	if limit := appPayloadMax(a.ESMXIP); a.AppSize > limit {
		return &FormatError{Field: SectionApp, Reason: fmt.Sprintf("size 0x%X exceeds 0x%X", a.AppSize, limit)}
	}
	if a.InitSize > AppInitMax {
		return &FormatError{Field: SectionAppInit, Reason: fmt.Sprintf("size 0x%X exceeds 0x%X", a.InitSize, AppInitMax)}
	}
	if a.CMDBSize > CMDBMax {
		return &FormatError{Field: SectionCMDB, Reason: fmt.Sprintf("size 0x%X exceeds 0x%X", a.CMDBSize, CMDBMax)}
	}
	if a.StdFwVer > 0xFFFFFF {
		return &FormatError{Field: "std fw version", Reason: fmt.Sprintf("0x%X does not fit in 24 bits", a.StdFwVer)}
	}
	return nil
}

// MarshalBinary encodes the App-ID block.
func (a *AppInfo) MarshalBinary() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if len(a.AppID) > 4 {
		return nil, &FormatError{Field: "app id", Reason: fmt.Sprintf("%q is longer than 4 characters", a.AppID)}
	}

	buf := make([]byte, AppIDSize)
	copy(buf[0:4], a.AppID)
	binary.LittleEndian.PutUint32(buf[4:8], a.ESMSize)
	binary.LittleEndian.PutUint32(buf[8:12], a.AppSize)
	binary.LittleEndian.PutUint16(buf[12:14], a.InitSize)
	cmdb := a.CMDBSize
	if a.ESMXIP {
		cmdb |= xipFlag
	}
	binary.LittleEndian.PutUint16(buf[14:16], cmdb)
	buf[16] = byte(a.StdFwVer >> 16)
	buf[17] = byte(a.StdFwVer >> 8)
	buf[18] = byte(a.StdFwVer)
	buf[19] = a.CustomerProjectID
	binary.BigEndian.PutUint16(buf[20:22], a.CustomerFwVer)

	return buf, nil
}

// Blank returns an erased (0xFF) APP_FW image carrying the App-ID block for
// info. Callers fill in the sections.
func Blank(info *AppInfo) ([]byte, error) {
	block, err := info.MarshalBinary()
	if err != nil {
		return nil, err
	}

	app := make([]byte, AppImageSize)
	for i := range app {
		app[i] = 0xFF
	}
	copy(app[AppIDStart:], block)
	return app, nil
}
