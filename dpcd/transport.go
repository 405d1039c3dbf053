package dpcd

import (
	"fmt"
)

//go:generate mockgen -destination=mocks/transport.go -package=mocks github.com/moffa90/go-ktdp/dpcd Transport

// Transport performs synchronous byte-addressed access to the DPCD address space.
// Implementations need not be safe for concurrent use.
type Transport interface {
	// ReadDPCD fills buf from addr.
	ReadDPCD(addr uint32, buf []byte) error

	// WriteDPCD writes data starting at addr.
	WriteDPCD(addr uint32, data []byte) error
}

// Op is the direction of a failed transfer.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// TransportError reports a failed AUX transfer.
type TransportError struct {
	Op   Op
	Addr uint32
	Len  int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("AUX %s of %d bytes at DPCD 0x%05X failed: %v", e.Op, e.Len, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
