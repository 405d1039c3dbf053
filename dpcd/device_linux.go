package dpcd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// MaxAddress is the last DPCD address reachable through the AUX character device.
const MaxAddress = 0xFFFFF

var errShortTransfer = errors.New("short transfer")

// Device is a DisplayPort AUX channel exposed by the kernel as /dev/drm_dp_auxN.
// The file offset selects the DPCD address.
type Device struct {
	mu   sync.Mutex
	fd   int
	path string
}

// Open opens the AUX character device at path.
//
// Example:
//
//	dev, err := dpcd.Open("/dev/drm_dp_aux0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	glog.V(1).Infof("opened AUX device %s (fd %d)", path, fd)

	return &Device{fd: fd, path: path}, nil
}

// Path returns the device path.
func (d *Device) Path() string {
	return d.path
}

// ReadDPCD implements Transport.
func (d *Device) ReadDPCD(addr uint32, buf []byte) error {
	if err := checkRange(addr, len(buf)); err != nil {
		return &TransportError{Op: OpRead, Addr: addr, Len: len(buf), Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for done := 0; done < len(buf); {
		n, err := unix.Pread(d.fd, buf[done:], int64(addr)+int64(done))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return &TransportError{Op: OpRead, Addr: addr, Len: len(buf), Err: err}
		}
		if n == 0 {
			return &TransportError{Op: OpRead, Addr: addr, Len: len(buf), Err: errShortTransfer}
		}
		done += n
	}

	if glog.V(2) {
		glog.Infof("[aux-read]: addr = 0x%05X, dlen = %d: %s", addr, len(buf), hex.EncodeToString(buf))
	}
	return nil
}

// WriteDPCD implements Transport.
func (d *Device) WriteDPCD(addr uint32, data []byte) error {
	if err := checkRange(addr, len(data)); err != nil {
		return &TransportError{Op: OpWrite, Addr: addr, Len: len(data), Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if glog.V(2) {
		glog.Infof("[aux-write]: addr = 0x%05X, dlen = %d: %s", addr, len(data), hex.EncodeToString(data))
	}

	for done := 0; done < len(data); {
		n, err := unix.Pwrite(d.fd, data[done:], int64(addr)+int64(done))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return &TransportError{Op: OpWrite, Addr: addr, Len: len(data), Err: err}
		}
		if n == 0 {
			return &TransportError{Op: OpWrite, Addr: addr, Len: len(data), Err: errShortTransfer}
		}
		done += n
	}
	return nil
}

// Close releases the file descriptor.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	glog.V(1).Infof("closing AUX device %s", d.path)
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

func checkRange(addr uint32, n int) error {
	if n == 0 {
		return nil
	}
	if uint64(addr)+uint64(n)-1 > MaxAddress {
		return fmt.Errorf("range 0x%05X+%d exceeds DPCD space", addr, n)
	}
	return nil
}
