//go:build !linux

package dpcd

import (
	"errors"
	"fmt"
)

// ErrUnsupportedPlatform is returned by Open outside Linux.
var ErrUnsupportedPlatform = errors.New("AUX character devices are only available on Linux")

// Device is unavailable on this platform.
type Device struct {
	path string
}

// Open always fails on this platform.
func Open(path string) (*Device, error) {
	return nil, fmt.Errorf("open %s: %w", path, ErrUnsupportedPlatform)
}

func (d *Device) Path() string { return d.path }

func (d *Device) ReadDPCD(addr uint32, buf []byte) error {
	return &TransportError{Op: OpRead, Addr: addr, Len: len(buf), Err: ErrUnsupportedPlatform}
}

func (d *Device) WriteDPCD(addr uint32, data []byte) error {
	return &TransportError{Op: OpWrite, Addr: addr, Len: len(data), Err: ErrUnsupportedPlatform}
}

func (d *Device) Close() error { return nil }
