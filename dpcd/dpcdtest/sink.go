// Package dpcdtest provides a simulated Kinetic DisplayPort sink for tests.
//
// Sink implements dpcd.Transport over an in-memory register file and models
// the secure AUX-ISP mailbox: it answers commands written to CMD_STATUS,
// checks the CRC posted for every AUX window chunk, boots a fake ISP driver
// and records every transfer so tests can assert on the exact sequence.
//
//	sink := dpcdtest.NewSink()
//	sess := isp.New(sink)
//	info, err := sess.ProbeDeviceInfo(ctx)
package dpcdtest

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/moffa90/go-ktdp/protocol"
)

// DefaultSourceOUI is the source OUI a fresh sink reports before any vendor command.
var DefaultSourceOUI = [protocol.OUISize]byte{0x00, 0x22, 0xB9}

// Op is one recorded transfer.
type Op struct {
	Write bool
	Addr  uint32
	Data  []byte
}

func (o Op) String() string {
	dir := "R"
	if o.Write {
		dir = "W"
	}
	return fmt.Sprintf("%s 0x%05X % X", dir, o.Addr, o.Data)
}

// Reply controls how CMD_STATUS answers one command.
type Reply struct {
	// PendingReads is the number of reads that still return the pending value.
	PendingReads int

	// Value is presented once the pending reads are used up.
	Value byte

	// Hang keeps the pending value forever.
	Hang bool
}

// Sink is a simulated Jaguar/Mustang sink. Configure the exported fields
// before handing it to a session.
type Sink struct {
	// Secure selects the handshake reported by the ISP driver.
	Secure bool

	// Handshake overrides the PARAM value left by the ISP driver when non-zero.
	Handshake protocol.Status

	// Flash is reported in the reply data after EXECUTE_RAM_CODE.
	Flash protocol.FlashInfo

	// ActiveBank is returned by GET_ACTIVE_FLASH_BANK.
	ActiveBank byte

	// Latency is the number of pending reads before any command completes.
	Latency int

	// InstallReads is the number of pending reads before INSTALL_IMAGES completes.
	InstallReads int

	// RequireVendorOUI ignores commands while the source OUI is not the vendor OUI.
	RequireVendorOUI bool

	// Respond overrides the reply to the n-th (1-based) occurrence of cmd.
	Respond func(cmd protocol.Command, n int) (Reply, bool)

	// FailRead and FailWrite inject transport errors.
	FailRead  func(addr uint32) error
	FailWrite func(addr uint32, data []byte) error

	mu       sync.Mutex
	regs     map[uint32]byte
	ops      []Op
	commands []protocol.Command
	counts   map[protocol.Command]int

	active  bool
	reply   Reply
	resetNo int

	chunk      []byte
	chunkStart bool
	payload    []byte
	chunks     int
	violations []string

	codeSize   uint32
	fwHeader   []byte
	forwarding bool
	fwdPort    byte
}

// NewSink returns a Jaguar sink running its application with a 4 MiB flash.
func NewSink() *Sink {
	s := &Sink{
		Secure:           true,
		Flash:            protocol.FlashInfo{ID: 0xEF40, SizeKiB: 4096, ProgramTimeS: 10},
		ActiveBank:       byte(protocol.Bank0),
		RequireVendorOUI: true,
		regs:             make(map[uint32]byte),
		counts:           make(map[protocol.Command]int),
	}
	s.SetOUI(DefaultSourceOUI)
	s.SetBranchID(protocol.BranchIDJaguarApp)
	s.SetIdentity([protocol.DeviceInfoSize]byte{
		0x02,             // chip rev
		0x01, 0x05, 0x03, // std FW ver
		0x00, 0x00,
		0x01, // customer FW ver high
		0x00, 0x00, 0x00, 0x00,
		0x02, // customer FW ver low
		0x10, // customer project ID
		0x01, // chip type
		0x00, 0x00,
	})
	return s
}

// SetOUI sets the source OUI register.
func (s *Sink) SetOUI(oui [protocol.OUISize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(protocol.AddrSourceOUI, oui[:])
}

// OUI returns the current source OUI register.
func (s *Sink) OUI() [protocol.OUISize]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oui [protocol.OUISize]byte
	s.load(protocol.AddrSourceOUI, oui[:])
	return oui
}

// SetBranchID sets the 6-byte branch device ID string, NUL padded.
func (s *Sink) SetBranchID(id string) {
	var buf [protocol.BranchIDSize]byte
	copy(buf[:], id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(protocol.AddrBranchIDString, buf[:])
}

// SetIdentity sets the 16-byte block at BRANCH_HW_REV.
func (s *Sink) SetIdentity(block [protocol.DeviceInfoSize]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(protocol.AddrBranchHWRev, block[:])
}

// Reg returns a single register.
func (s *Sink) Reg(addr uint32) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// Ops returns a copy of every recorded transfer.
func (s *Sink) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Op, len(s.ops))
	copy(out, s.ops)
	return out
}

// Commands returns the commands issued so far, in order.
func (s *Sink) Commands() []protocol.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Count returns how many times cmd was issued.
func (s *Sink) Count(cmd protocol.Command) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[cmd]
}

// Payload returns the concatenation of every acknowledged chunk.
func (s *Sink) Payload() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.payload...)
}

// Chunks returns the number of acknowledged chunks.
func (s *Sink) Chunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Violations lists protocol misuse observed by the sink, such as
// non-contiguous AUX window writes or oversized transactions.
func (s *Sink) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.violations...)
}

// CodeSize returns the ISP driver size announced with ENTER_CODE_LOADING_MODE.
func (s *Sink) CodeSize() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codeSize
}

// FwUpdateHeader returns the reply data announced with ENTER_FW_UPDATE_MODE.
func (s *Sink) FwUpdateHeader() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.fwHeader...)
}

// Forwarding reports the AUX forwarding state and target port.
func (s *Sink) Forwarding() (bool, byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forwarding, s.fwdPort
}

// Resets returns the number of RESET_SYSTEM commands received.
func (s *Sink) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetNo
}

// ReadDPCD implements dpcd.Transport.
func (s *Sink) ReadDPCD(addr uint32, buf []byte) error {
	if s.FailRead != nil {
		if err := s.FailRead(addr); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if addr == protocol.AddrCmdStatus && len(buf) == 1 && s.active {
		s.advance()
	}
	s.load(addr, buf)
	s.ops = append(s.ops, Op{Addr: addr, Data: append([]byte(nil), buf...)})
	return nil
}

// WriteDPCD implements dpcd.Transport.
func (s *Sink) WriteDPCD(addr uint32, data []byte) error {
	if s.FailWrite != nil {
		if err := s.FailWrite(addr, data); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops = append(s.ops, Op{Write: true, Addr: addr, Data: append([]byte(nil), data...)})

	if addr >= protocol.AddrAuxWindow && addr <= protocol.AddrAuxWindowEnd {
		s.windowWrite(addr, data)
		return nil
	}

	s.store(addr, data)
	if addr == protocol.AddrCmdStatus && len(data) == 1 {
		s.command(data[0])
	}
	return nil
}

func (s *Sink) advance() {
	if s.reply.Hang {
		return
	}
	if s.reply.PendingReads > 0 {
		s.reply.PendingReads--
		return
	}
	s.regs[protocol.AddrCmdStatus] = s.reply.Value
	s.active = false
}

func (s *Sink) windowWrite(addr uint32, data []byte) {
	if len(data) > protocol.MaxAuxTransaction {
		s.violations = append(s.violations, fmt.Sprintf("AUX write of %d bytes at 0x%05X", len(data), addr))
	}
	if addr+uint32(len(data))-1 > protocol.AddrAuxWindowEnd {
		s.violations = append(s.violations, fmt.Sprintf("AUX write at 0x%05X crosses the window end", addr))
	}
	if want := protocol.AddrAuxWindow + uint32(len(s.chunk)); addr != want {
		s.violations = append(s.violations, fmt.Sprintf("AUX write at 0x%05X, expected 0x%05X", addr, want))
	}
	s.chunk = append(s.chunk, data...)
}

func (s *Sink) command(v byte) {
	if v == byte(protocol.StatusNone) {
		s.active = false
		return
	}
	if v&protocol.ConfirmationBit == 0 {
		return
	}

	cmd := protocol.Command(v & protocol.CommandMask)
	s.commands = append(s.commands, cmd)
	s.counts[cmd]++

	var oui [protocol.OUISize]byte
	s.load(protocol.AddrSourceOUI, oui[:])
	if s.RequireVendorOUI && oui != protocol.VendorOUI {
		s.active = true
		s.reply = Reply{Hang: true}
		return
	}

	reply := Reply{PendingReads: s.Latency, Value: byte(cmd)}

	switch cmd {
	case protocol.CmdEnterCodeLoadingMode:
		data := s.replyData()
		if len(data) == 4 {
			s.codeSize = binary.LittleEndian.Uint32(data)
		}
		s.chunk = s.chunk[:0]

	case protocol.CmdExecuteRAMCode:
		reply.Value = byte(protocol.StatusNone)
		param := protocol.StatusSecureDisabled
		if s.Secure {
			param = protocol.StatusSecureEnabled
		}
		if s.Handshake != protocol.StatusNone {
			param = s.Handshake
		}
		s.regs[protocol.AddrParam] = byte(param)
		var info [protocol.FlashInfoReplySize]byte
		binary.BigEndian.PutUint16(info[0:2], s.Flash.ID)
		binary.BigEndian.PutUint16(info[2:4], s.Flash.SizeKiB)
		binary.BigEndian.PutUint16(info[4:6], s.Flash.ProgramTimeS)
		s.store(protocol.AddrReplyData, info[:])
		s.regs[protocol.AddrReplyLen] = protocol.FlashInfoReplySize

	case protocol.CmdEnterFwUpdateMode:
		s.fwHeader = s.replyData()

	case protocol.CmdChunkDataProcessed:
		posted := s.replyData()
		want := make([]byte, 4)
		binary.LittleEndian.PutUint32(want, uint32(crc16(s.chunk)))
		if string(posted) != string(want) {
			reply.Value = byte(protocol.StatusCRCFailure)
		} else {
			s.payload = append(s.payload, s.chunk...)
			s.chunks++
		}
		s.chunk = s.chunk[:0]

	case protocol.CmdInstallImages:
		reply.PendingReads += s.InstallReads

	case protocol.CmdResetSystem:
		s.resetNo++
		s.active = false
		return

	case protocol.CmdEnableAuxForward:
		s.forwarding = true
		s.fwdPort = s.regs[protocol.AddrParam]

	case protocol.CmdDisableAuxForward:
		s.forwarding = false

	case protocol.CmdGetActiveFlashBank:
		s.regs[protocol.AddrParam] = s.ActiveBank
	}

	if s.Respond != nil {
		if r, ok := s.Respond(cmd, s.counts[cmd]); ok {
			reply = r
		}
	}

	s.active = true
	s.reply = reply
}

func (s *Sink) replyData() []byte {
	n := int(s.regs[protocol.AddrReplyLen])
	if n > protocol.ReplyDataSize {
		n = protocol.ReplyDataSize
	}
	buf := make([]byte, n)
	s.load(protocol.AddrReplyData, buf)
	return buf
}

func (s *Sink) store(addr uint32, data []byte) {
	for i, b := range data {
		s.regs[addr+uint32(i)] = b
	}
}

func (s *Sink) load(addr uint32, buf []byte) {
	for i := range buf {
		buf[i] = s.regs[addr+uint32(i)]
	}
}

// crc16 is the bit-serial chunk CRC, kept independent of package protocol.
func crc16(data []byte) uint16 {
	accum := uint16(protocol.CRC16Seed)
	for _, d := range data {
		for i := 0; i < 8; i++ {
			flag := d ^ byte(accum>>8)
			accum <<= 1
			if flag&0x80 != 0 {
				accum ^= 0x1021
			}
			d <<= 1
		}
	}
	return accum
}
