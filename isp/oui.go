package isp

import (
	"fmt"

	"github.com/moffa90/go-ktdp/protocol"
)

func (s *Session) readOUI() ([protocol.OUISize]byte, error) {
	var oui [protocol.OUISize]byte
	err := s.read(protocol.AddrSourceOUI, oui[:])
	return oui, err
}

func (s *Session) writeOUI(oui [protocol.OUISize]byte) error {
	return s.write(protocol.AddrSourceOUI, oui[:])
}

// installVendorOUI claims the vendor command space.
func (s *Session) installVendorOUI() error {
	return s.writeOUI(protocol.VendorOUI)
}

// withVendorOUI runs fn with the vendor OUI installed and puts the previous
// source OUI back afterwards, whatever fn returns.
func (s *Session) withVendorOUI(fn func() error) error {
	prev, err := s.readOUI()
	if err != nil {
		return fmt.Errorf("read source OUI: %w", err)
	}

	defer func() {
		if err := s.writeOUI(prev); err != nil {
			s.logError("restoring source OUI failed",
				"oui", fmt.Sprintf("% X", prev[:]),
				"error", err,
			)
		}
	}()

	if err := s.installVendorOUI(); err != nil {
		return fmt.Errorf("install vendor OUI: %w", err)
	}

	return fn()
}
