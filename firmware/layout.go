package firmware

// Layout of the 512 KiB APP_FW image. Offsets are relative to the start of
// the image and match the SPI flash bank layout.
const (
	// CertSize is the size of one firmware certificate
	CertSize = 1024

	// RSASigSize is the size of one RSA signature
	RSASigSize = 256

	// CertsSize is the certificates block at offset 0: two certificates and two signatures
	CertsSize = 2*CertSize + 2*RSASigSize

	// ESMPayloadStart is the offset of the ESM payload
	ESMPayloadStart = 0x01000

	// ESMPayloadMax is the largest ESM payload
	ESMPayloadMax = 0x3F000

	// AppPayloadStart is the offset of the ARM application code
	AppPayloadStart = 0x40000

	// AppPayloadMax is the largest application without ESM XIP
	AppPayloadMax = 0x28000

	// AppPayloadMaxXIP is the largest application when the ESM executes in place
	AppPayloadMaxXIP = 0x32000

	// AppNormalInitStart is the offset of the App init data without ESM XIP
	AppNormalInitStart = 0x68000

	// AppExtendInitStart is the offset of the App init data with ESM XIP
	AppExtendInitStart = 0x72000

	// AppInitMax is the largest App init data block
	AppInitMax = 0x8000

	// CMDBStart is the offset of the CMDB block
	CMDBStart = 0x7A000

	// CMDBMax is the largest CMDB block
	CMDBMax = 0x4000

	// AppIDStart is the offset of the App-ID block
	AppIDStart = 0x7FFE0

	// AppIDSize is the size of the App-ID block
	AppIDSize = 32

	// AppImageSize is the exact size of APP_FW
	AppImageSize = 0x80000

	// xipFlag marks ESM XIP in the CMDB size field
	xipFlag = 0x8000
)

// Sub-image labels inside a container.
const (
	LabelISPDriver = "ISP_DRV"
	LabelAppFW     = "APP_FW"
)

// Section is one region of APP_FW streamed to the sink.
type Section struct {
	// Name identifies the section in logs and progress
	Name string

	// Offset is the start of the section in APP_FW
	Offset uint32

	// Size is the number of bytes streamed
	Size uint32
}

// Section names, in streaming order.
const (
	SectionCerts   = "certificates"
	SectionESM     = "esm"
	SectionApp     = "app"
	SectionAppInit = "app_init"
	SectionCMDB    = "cmdb"
	SectionAppID   = "app_id"
)

// Sections returns the regions of APP_FW in the order they are streamed.
// The certificates block is only included when secure is true, and the CMDB
// block only when it is non-empty.
func (a *AppInfo) Sections(secure bool) []Section {
	sections := make([]Section, 0, 6)
	if secure {
		sections = append(sections, Section{Name: SectionCerts, Offset: 0, Size: CertsSize})
	}

	sections = append(sections,
		Section{Name: SectionESM, Offset: ESMPayloadStart, Size: a.ESMSize},
		Section{Name: SectionApp, Offset: AppPayloadStart, Size: a.AppSize},
		Section{Name: SectionAppInit, Offset: a.InitStart(), Size: uint32(a.InitSize)},
	)

	if a.CMDBSize > 0 {
		sections = append(sections, Section{Name: SectionCMDB, Offset: CMDBStart, Size: uint32(a.CMDBSize)})
	}

	return append(sections, Section{Name: SectionAppID, Offset: AppIDStart, Size: AppIDSize})
}

// InitStart returns the offset of the App init data, which moves when the
// ESM executes in place.
func (a *AppInfo) InitStart() uint32 {
	if a.ESMXIP {
		return AppExtendInitStart
	}
	return AppNormalInitStart
}

// PayloadSize returns the number of APP_FW bytes streamed for the given
// handshake mode.
func (a *AppInfo) PayloadSize(secure bool) uint32 {
	var n uint32
	for _, s := range a.Sections(secure) {
		n += s.Size
	}
	return n
}

func appPayloadMax(xip bool) uint32 {
	if xip {
		return AppPayloadMaxXIP
	}
	return AppPayloadMax
}
