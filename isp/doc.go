// Package isp reflashes Kinetic Jaguar/Mustang DisplayPort converters over
// the AUX channel using the secure AUX-ISP protocol.
//
// # Overview
//
// A Session orchestrates the complete update sequence:
//   - Claiming the vendor command space by installing the MegaChips OUI
//   - Uploading and booting the RAM-resident ISP driver
//   - Announcing section sizes and entering FW update mode
//   - Streaming the firmware sections through the 32 KiB AUX window
//   - Installing the images and resetting the sink
//
// It also reads the device identification and toggles AUX forwarding to
// downstream ports.
//
// # Basic Usage
//
//	dev, err := dpcd.Open("/dev/drm_dp_aux0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	img, err := firmware.Parse("KTM5010.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sess := isp.New(dev)
//	info, err := sess.ProbeDeviceInfo(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := sess.UpdateFirmware(ctx, img, info); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
// The callback runs after every acknowledged chunk and every install poll:
//
//	sess := isp.New(dev,
//	    isp.WithProgressCallback(func(p isp.Progress) {
//	        fmt.Printf("\r[%-20s] %5.1f%%", p.State, p.Percentage)
//	    }),
//	)
//
// Flash programming reports nothing while INSTALL_IMAGES runs, so progress
// during that step is synthesized from the programming time the ISP driver
// announced. Processed never exceeds Total and reaches it on success.
//
// # Timing
//
// Every command is polled with a fixed budget and interval taken from the
// protocol package, from 20 ms polls for ancillary commands to 200 s for a
// bank erase. Budgets are charged per poll rather than measured with a wall
// clock, so WithSleepFunc can replace the sleep in tests without changing
// which polls time out.
//
// # Context Support
//
// The context is checked before every CMD_STATUS poll and interrupts the
// sleep between polls. A cancelled update still sends RESET_SYSTEM.
//
// # Error Handling
//
// Errors are wrapped with the step that failed and can be matched with
// errors.As and errors.Is:
//   - dpcd.TransportError: an AUX transfer failed
//   - TimeoutError: a polling budget ran out
//   - protocol.ProtocolError: the sink reported a failure status;
//     errors.Is matches protocol.ErrCRCFailure and protocol.ErrInvalidImage
//   - BadReplyError: the sink answered with unusable data
//   - ErrFlashNotSupported, ErrFlashNotConnected: flash handshake failures
//   - PreconditionError: the session is busy or already used
//   - UnsupportedDeviceError: the branch ID is not a Jaguar or Mustang
package isp
