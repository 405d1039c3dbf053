// Package firmware parses Kinetic secure firmware containers for the
// Jaguar and Mustang DisplayPort converters.
//
// # Container Format
//
// A container holds two labelled sub-images:
//
//	[ISP_DRV_SIZE(4, LE)][ISP_DRV][APP_FW]
//
// ISP_DRV is the RAM-resident driver booted on the sink before the update.
// APP_FW is a 512 KiB image laid out like one SPI flash bank:
//
//	0x00000  certificates (2 x 1024) and RSA signatures (2 x 256)
//	0x01000  ESM payload          (up to 0x3F000)
//	0x40000  ARM application code (up to 0x28000, or 0x32000 with ESM XIP)
//	0x68000  App init data        (0x72000 with ESM XIP, up to 0x8000)
//	0x7A000  CMDB block           (up to 0x4000, optional)
//	0x7FFE0  App-ID block         (32 bytes)
//
// The App-ID block carries the size of every section, so the image does
// not need to be scanned.
//
// # Usage
//
//	img, err := firmware.Parse("KTM5010.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, s := range img.Info.Sections(true) {
//	    fmt.Printf("%-12s 0x%05X %6d\n", s.Name, s.Offset, s.Size)
//	}
//
// # Error Handling
//
// Invalid containers return a *FormatError naming the offending field:
//   - Empty or truncated ISP driver
//   - APP_FW not exactly 512 KiB
//   - Section sizes larger than their flash block
package firmware
