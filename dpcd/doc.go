// Package dpcd provides access to the DisplayPort Configuration Data (DPCD)
// address space of a sink over the AUX channel.
//
// Transport is the synchronous contract used by package isp. On Linux, Device
// implements it on top of the drm_dp_aux character device, where the file
// offset is the DPCD address:
//
//	dev, err := dpcd.Open("/dev/drm_dp_aux0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	buf := make([]byte, 3)
//	err = dev.ReadDPCD(0x300, buf)
//
// Transfers are traced with glog at -v=2.
//
// Failed transfers are reported as *TransportError carrying the direction and
// address. Package dpcdtest provides a simulated Kinetic sink for tests.
package dpcd
