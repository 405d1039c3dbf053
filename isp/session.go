package isp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moffa90/go-ktdp/dpcd"
	"github.com/moffa90/go-ktdp/firmware"
	"github.com/moffa90/go-ktdp/protocol"
)

// Session drives the secure AUX-ISP protocol against one sink.
// It owns the Transport for its lifetime and performs at most one update.
//
// Session methods may be called from several goroutines, but only one
// operation runs at a time; a concurrent call fails with a PreconditionError
// instead of queueing behind the AUX link.
type Session struct {
	dev    dpcd.Transport
	config Config

	// busy is held for the duration of a public operation
	busy sync.Mutex

	mu          sync.Mutex
	state       State
	total       uint32
	procd       uint32
	payloadSent uint32
	started     time.Time

	// owned by the operation holding busy
	crc     *protocol.CRC16
	auxAddr uint32
	secure  bool
	flash   protocol.FlashInfo
}

// New creates a Session on the given transport.
//
// Example:
//
//	dev, err := dpcd.Open("/dev/drm_dp_aux0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	sess := isp.New(dev,
//	    isp.WithProgressCallback(progressFunc),
//	    isp.WithLogger(logger),
//	)
func New(dev dpcd.Transport, opts ...Option) *Session {
	if dev == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		dev:     dev,
		config:  cfg,
		state:   StateIdle,
		crc:     protocol.NewCRC16(),
		auxAddr: protocol.AddrAuxWindow,
		secure:  true,
		flash:   protocol.FlashInfo{ProgramTimeS: protocol.DefaultFlashProgramTime},
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns a snapshot of the update counters.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// FlashInfo returns the SPI flash reported by the ISP driver during the last
// update.
func (s *Session) FlashInfo() protocol.FlashInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flash
}

// SecureAuth reports whether the ISP driver asked for certificates.
func (s *Session) SecureAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secure
}

// UpdateFirmware performs the complete secure AUX-ISP sequence:
//  1. Install the vendor OUI
//  2. Upload and boot the ISP driver (after PREPARE_FOR_ISP_MODE when the
//     application is running)
//  3. Announce the section sizes and enter FW update mode
//  4. Stream certificates (secure mode only), ESM, App, App init data,
//     CMDB (when present) and App-ID
//  5. Install the images
//  6. Reset the sink
//
// The reset is attempted on every exit, including failures and
// cancellation. A session performs a single update; calling UpdateFirmware
// again fails with a PreconditionError.
//
// Example:
//
//	info, err := sess.ProbeDeviceInfo(ctx)
//	if err != nil {
//	    return err
//	}
//	img, _ := firmware.Parse("KTM5010.bin")
//	err = sess.UpdateFirmware(ctx, img, info)
func (s *Session) UpdateFirmware(ctx context.Context, img *firmware.Image, info *protocol.DeviceInfo) error {
	if img == nil || img.Info == nil {
		return fmt.Errorf("firmware cannot be nil")
	}
	if info == nil {
		return fmt.Errorf("device info cannot be nil")
	}
	if err := img.Validate(); err != nil {
		return err
	}

	if err := s.acquire("update firmware"); err != nil {
		return err
	}
	defer s.busy.Unlock()

	if st := s.State(); st != StateIdle {
		return &PreconditionError{
			Operation: "update firmware",
			State:     st,
			Reason:    "a session performs a single update",
		}
	}

	s.begin(img)
	s.logInfo("secure AUX-ISP started",
		"chip", info.ChipID.String(),
		"run_state", info.FwRunState.String(),
		"total", s.Progress().Total,
	)

	err := s.run(ctx, img, info.FwRunState == protocol.RunApp)

	s.setState(StateReset)
	if rerr := s.resetSystem(); rerr != nil {
		if err == nil {
			err = fmt.Errorf("reset system: %w", rerr)
		} else {
			s.logError("reset after failure failed", "error", rerr)
		}
	}

	if err != nil {
		s.setState(StateFailed)
		s.logError("secure AUX-ISP failed", "error", err)
		return err
	}

	s.complete()
	s.setState(StateDone)
	s.reportProgress()

	p := s.Progress()
	s.logInfo("secure AUX-ISP complete",
		"bytes", p.PayloadSent,
		"elapsed", p.ElapsedTime.String(),
	)

	return nil
}

func (s *Session) run(ctx context.Context, img *firmware.Image, isAppMode bool) error {
	if err := s.installVendorOUI(); err != nil {
		return fmt.Errorf("install vendor OUI: %w", err)
	}
	s.setState(StateOUIInstalled)

	if len(img.ISPDriver) > 0 {
		if err := s.sendISPDriver(ctx, img.ISPDriver, isAppMode); err != nil {
			return err
		}
	}

	if err := s.enterFwUpdateMode(ctx, img.Info); err != nil {
		return fmt.Errorf("enter FW update mode: %w", err)
	}

	if err := s.sendFwPayload(ctx, img); err != nil {
		return err
	}

	s.setState(StateInstalling)
	if err := s.installImages(ctx); err != nil {
		return fmt.Errorf("install images: %w", err)
	}

	return nil
}

func (s *Session) sendISPDriver(ctx context.Context, drv []byte, isAppMode bool) error {
	s.setState(StateISPDriverLoading)

	if err := s.enterCodeLoadingMode(ctx, isAppMode, uint32(len(drv))); err != nil {
		return fmt.Errorf("enter code loading mode: %w", err)
	}

	s.logDebug("sending ISP driver", "size", len(drv))
	if err := s.sendPayload(ctx, drv, protocol.ISPDriverChunkBudget, protocol.ISPDriverChunkInterval); err != nil {
		return fmt.Errorf("send ISP driver: %w", err)
	}

	if err := s.executeISPDriver(ctx); err != nil {
		return fmt.Errorf("boot ISP driver: %w", err)
	}
	s.setState(StateISPDriverRunning)

	flash := s.FlashInfo()
	s.logInfo("ISP driver running",
		"secure", s.SecureAuth(),
		"flash_id", fmt.Sprintf("0x%04X", flash.ID),
		"flash_size_kib", flash.SizeKiB,
		"program_time_s", flash.ProgramTimeS,
		"dual_bank", flash.DualBank(),
	)

	if flash.SizeKiB == 0 {
		if flash.ID != 0 {
			return ErrFlashNotSupported
		}
		return ErrFlashNotConnected
	}

	return nil
}

func (s *Session) enterCodeLoadingMode(ctx context.Context, isAppMode bool, size uint32) error {
	if isAppMode {
		// unlocks 0x514 ~ 0x517 for the driver size
		if err := s.sendCmd(ctx, protocol.CmdPrepareForISPMode, protocol.PrepareISPBudget, protocol.PrepareISPInterval); err != nil {
			return fmt.Errorf("prepare for ISP mode: %w", err)
		}
	}

	if err := s.writeReplyData(protocol.BuildCodeSize(size)); err != nil {
		return fmt.Errorf("send ISP driver size: %w", err)
	}

	return s.sendCmd(ctx, protocol.CmdEnterCodeLoadingMode, protocol.CodeLoadingBudget, protocol.CodeLoadingInterval)
}

// executeISPDriver boots the uploaded driver and reads its handshake: the
// secure mode in PARAM and the flash description in the reply data.
func (s *Session) executeISPDriver(ctx context.Context) error {
	s.setFlash(protocol.FlashInfo{ProgramTimeS: protocol.DefaultFlashProgramTime})

	if err := s.writeCmd(protocol.CmdExecuteRAMCode); err != nil {
		return err
	}

	if err := s.waitCleared(ctx, protocol.ExecuteBudget, protocol.ExecuteInterval); err != nil {
		if errors.Is(err, protocol.ErrInvalidImage) {
			return fmt.Errorf("invalid ISP driver: %w", err)
		}
		return err
	}

	param, err := s.readParam()
	if err != nil {
		return err
	}

	switch protocol.Status(param) {
	case protocol.StatusSecureEnabled:
		s.setSecure(true)
	case protocol.StatusSecureDisabled:
		s.setSecure(false)
	default:
		return &BadReplyError{
			Reason: fmt.Sprintf("ISP driver handshake reported %s", protocol.Status(param)),
		}
	}

	buf := make([]byte, protocol.FlashInfoReplySize)
	n, err := s.readReplyData(buf)
	if err != nil {
		return fmt.Errorf("read flash ID and size: %w", err)
	}

	flash, err := protocol.ParseFlashInfo(buf[:n])
	if err != nil {
		return &BadReplyError{Reason: err.Error()}
	}
	s.setFlash(flash)

	return nil
}

func (s *Session) enterFwUpdateMode(ctx context.Context, info *firmware.AppInfo) error {
	hdr, err := protocol.BuildFwUpdateHeader(protocol.FwUpdateSizes{
		ESMPayload:  info.ESMSize,
		ArmAppCode:  info.AppSize,
		AppInitData: info.InitSize,
		CMDBBlock:   info.CMDBSize,
		ESMXIP:      info.ESMXIP,
	})
	if err != nil {
		return err
	}

	if err := s.writeReplyData(hdr[:]); err != nil {
		return fmt.Errorf("send payload size: %w", err)
	}

	// the sink may erase a bank before confirming
	if err := s.sendCmd(ctx, protocol.CmdEnterFwUpdateMode, protocol.FwUpdateModeBudget, protocol.FwUpdateModeInterval); err != nil {
		return err
	}

	s.setState(StateFwUpdateMode)
	return nil
}

var sectionStates = map[string]State{
	firmware.SectionCerts:   StateSendingCerts,
	firmware.SectionESM:     StateSendingESM,
	firmware.SectionApp:     StateSendingApp,
	firmware.SectionAppInit: StateSendingAppInit,
	firmware.SectionCMDB:    StateSendingCMDB,
	firmware.SectionAppID:   StateSendingAppID,
}

func (s *Session) sendFwPayload(ctx context.Context, img *firmware.Image) error {
	for _, sec := range img.Info.Sections(s.SecureAuth()) {
		s.setState(sectionStates[sec.Name])
		s.logDebug("sending section",
			"section", sec.Name,
			"offset", fmt.Sprintf("0x%05X", sec.Offset),
			"size", sec.Size,
		)

		if err := s.sendPayload(ctx, img.Section(sec), protocol.FwChunkBudget, protocol.FwChunkInterval); err != nil {
			return fmt.Errorf("send %s: %w", sec.Name, err)
		}
	}
	return nil
}

// installImages commits the streamed images. Flash programming gives no
// progress of its own, so each pending poll adds a share of
// FlashProgramCount sized to the reported programming time.
func (s *Session) installImages(ctx context.Context) error {
	cmd := protocol.CmdInstallImages
	if err := s.writeCmd(cmd); err != nil {
		return err
	}

	step := protocol.InstallProgressStep(s.FlashInfo().ProgramTimeS)
	for i := 0; i < s.config.InstallPollLimit; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := s.readCmdStatus()
		if err != nil {
			return err
		}

		switch outcome, status := protocol.Evaluate(cmd, v); outcome {
		case protocol.OutcomeDone:
			return nil
		case protocol.OutcomeFailed:
			return &protocol.ProtocolError{Operation: cmd.String(), Status: status}
		}

		s.advance(step)
		s.reportProgress()

		if err := s.config.Sleep(ctx, protocol.InstallPollInterval); err != nil {
			return err
		}
	}

	return &TimeoutError{
		Step:   cmd.String(),
		Budget: time.Duration(s.config.InstallPollLimit) * protocol.InstallPollInterval,
	}
}

// resetSystem restarts the sink. The sink does not confirm the command.
func (s *Session) resetSystem() error {
	return s.writeCmd(protocol.CmdResetSystem)
}

// acquire claims the session for one public operation.
func (s *Session) acquire(op string) error {
	if !s.busy.TryLock() {
		return &PreconditionError{
			Operation: op,
			State:     s.State(),
			Reason:    "another operation is in progress",
		}
	}
	return nil
}

func (s *Session) begin(img *firmware.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = uint32(len(img.ISPDriver)) + img.Info.PayloadSize(true) + protocol.FlashProgramCount
	s.procd = 0
	s.payloadSent = 0
	s.started = time.Now()
	s.secure = true
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()

	if prev != st {
		s.logDebug("state", "from", prev.String(), "to", st.String())
	}
}

func (s *Session) setSecure(secure bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secure && !secure {
		s.total -= firmware.CertsSize
		if s.procd > s.total {
			s.procd = s.total
		}
		if s.payloadSent > s.total {
			s.payloadSent = s.total
		}
	}
	s.secure = secure
}

func (s *Session) setFlash(flash protocol.FlashInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = flash
}

// advance adds n to the progress counters without passing total.
func (s *Session) advance(n uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if room := s.total - s.procd; n > room {
		n = room
	}
	s.procd += n
	s.payloadSent += n
}

// complete snaps the counters to total once the images are installed.
func (s *Session) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procd = s.total
	s.payloadSent = s.total
}

func (s *Session) snapshotLocked() Progress {
	p := Progress{
		State:       s.state,
		PayloadSent: s.payloadSent,
		Processed:   s.procd,
		Total:       s.total,
	}
	if !s.started.IsZero() {
		p.ElapsedTime = time.Since(s.started)
	}
	if s.total > 0 {
		p.Percentage = float64(s.procd) / float64(s.total) * 100
	}
	return p
}

// reportProgress calls the progress callback if configured.
func (s *Session) reportProgress() {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(s.Progress())
	}
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
