// Command ktdpflash identifies and reflashes Kinetic Jaguar/Mustang
// DisplayPort converters through the Linux DRM AUX character device.
//
// Usage:
//
//	ktdpflash [flags] info
//	ktdpflash [flags] update FILE
//	ktdpflash [flags] forward enable|disable
//	ktdpflash dump FILE
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"

	"github.com/moffa90/go-ktdp/dpcd"
	"github.com/moffa90/go-ktdp/firmware"
	"github.com/moffa90/go-ktdp/isp"
	"github.com/moffa90/go-ktdp/protocol"
)

var (
	device = "/dev/drm_dp_aux0"
	port   = 1
	dryRun = false
)

func usage() {
	printUsage(os.Stderr, os.Args[0])
}

func printUsage(w io.Writer, name string) {
	fmt.Fprintf(w, "%s: %s flasher\n\n", name, protocol.ProtocolVersion)
	fmt.Fprintf(w, "Usage: %s [flags] info | update FILE | forward enable|disable | dump FILE\n\n", name)
	fmt.Fprint(w, pflag.CommandLine.FlagUsages())
}

func main() {
	// overridable with --logtostderr=false
	_ = flag.Set("logtostderr", "true")

	pflag.StringVarP(&device, "device", "d", device, "DRM DP AUX character device")
	pflag.IntVarP(&port, "port", "p", port, "Downstream port for forward enable")
	pflag.BoolVar(&dryRun, "dry-run", dryRun, "Parse the image and probe the device without flashing")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Usage = usage
	pflag.Parse()
	// glog reads its flags from the standard set
	_ = flag.CommandLine.Parse(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, pflag.Args())
	stop()

	// os.Exit skips deferred calls
	glog.Flush()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit code.
func run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	var err error
	switch args[0] {
	case "info":
		err = runInfo(ctx)
	case "update":
		if len(args) != 2 {
			usage()
			return 2
		}
		err = runUpdate(ctx, args[1])
	case "forward":
		if len(args) != 2 || (args[1] != "enable" && args[1] != "disable") {
			usage()
			return 2
		}
		err = runForward(ctx, args[1] == "enable")
	case "dump":
		if len(args) != 2 {
			usage()
			return 2
		}
		err = runDump(args[1])
	default:
		usage()
		return 2
	}

	if err != nil {
		glog.Errorf("%s: %v", args[0], err)
		return 1
	}
	return 0
}

func openSession(opts ...isp.Option) (*dpcd.Device, *isp.Session, error) {
	dev, err := dpcd.Open(device)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]isp.Option{isp.WithLogger(glogLogger{})}, opts...)
	return dev, isp.New(dev, opts...), nil
}

func runInfo(ctx context.Context) error {
	dev, sess, err := openSession()
	if err != nil {
		return err
	}
	defer dev.Close()

	info, err := sess.ProbeDeviceInfo(ctx)
	if err != nil {
		return err
	}
	printDeviceInfo(info)
	return nil
}

func printDeviceInfo(info *protocol.DeviceInfo) {
	fmt.Printf("Branch ID:           %s\n", info.BranchID)
	fmt.Printf("Chip:                %s (rev 0x%02X, type 0x%02X)\n", info.ChipID, info.ChipRev, info.ChipType)
	fmt.Printf("Running:             %s\n", info.FwRunState)
	fmt.Printf("Standard FW:         %d.%d.%d\n", info.StdFwVer>>16, (info.StdFwVer>>8)&0xFF, info.StdFwVer&0xFF)
	fmt.Printf("Customer project:    0x%02X\n", info.CustomerProjectID)
	fmt.Printf("Customer FW:         %d.%d\n", info.CustomerFwVer>>8, info.CustomerFwVer&0xFF)
	if info.DualBankSupported {
		fmt.Printf("Active bank:         %s\n", info.ActiveBank)
	}
}

func runUpdate(ctx context.Context, path string) error {
	img, err := firmware.Parse(path)
	if err != nil {
		return err
	}

	bar := newProgressLine(40)
	dev, sess, err := openSession(isp.WithProgressCallback(bar.update))
	if err != nil {
		return err
	}
	defer dev.Close()

	info, err := sess.ProbeDeviceInfo(ctx)
	if err != nil {
		return err
	}
	printDeviceInfo(info)
	fmt.Printf("Image:               %s, std FW %06X, customer FW %04X\n",
		img.Info.AppID, img.Info.StdFwVer, img.Info.CustomerFwVer)

	if dryRun {
		fmt.Println("Dry run, not flashing.")
		return nil
	}

	start := time.Now()
	err = sess.UpdateFirmware(ctx, img, info)
	bar.finish()
	if err != nil {
		return err
	}

	fmt.Printf("Update complete in %s (flash 0x%04X, %d KiB)\n",
		time.Since(start).Round(time.Second), sess.FlashInfo().ID, sess.FlashInfo().SizeKiB)
	return nil
}

func runForward(ctx context.Context, enable bool) error {
	if port < 0 || port > 0xFF {
		return fmt.Errorf("port %d out of range", port)
	}

	dev, sess, err := openSession()
	if err != nil {
		return err
	}
	defer dev.Close()

	if enable {
		return sess.EnableAuxForward(ctx, byte(port))
	}
	return sess.DisableAuxForward(ctx)
}

func runDump(path string) error {
	img, err := firmware.Parse(path)
	if err != nil {
		return err
	}

	info := img.Info
	fmt.Printf("ISP driver:          %d bytes\n", len(img.ISPDriver))
	fmt.Printf("App ID:              %q\n", info.AppID)
	fmt.Printf("Standard FW:         %06X\n", info.StdFwVer)
	fmt.Printf("Customer project:    0x%02X\n", info.CustomerProjectID)
	fmt.Printf("Customer FW:         %04X\n", info.CustomerFwVer)
	fmt.Printf("ESM XIP:             %v\n", info.ESMXIP)
	fmt.Println()

	fmt.Printf("%-14s %-9s %s\n", "SECTION", "OFFSET", "SIZE")
	for _, s := range info.Sections(true) {
		fmt.Printf("%-14s 0x%05X   %d\n", s.Name, s.Offset, s.Size)
	}
	fmt.Printf("\nPayload:             %d bytes secure, %d bytes without certificates\n",
		info.PayloadSize(true), info.PayloadSize(false))
	return nil
}

// progressLine redraws one terminal line per progress report.
type progressLine struct {
	width int
	drawn bool
}

func newProgressLine(width int) *progressLine {
	return &progressLine{width: width}
}

func (l *progressLine) update(p isp.Progress) {
	filled := int(float64(l.width) * p.Percentage / 100)
	if filled > l.width {
		filled = l.width
	}

	fmt.Printf("\r\033[K[%s%s] %5.1f%% %-20s %s",
		strings.Repeat("#", filled),
		strings.Repeat(".", l.width-filled),
		p.Percentage,
		p.State,
		p.ElapsedTime.Round(time.Second),
	)
	l.drawn = true
}

func (l *progressLine) finish() {
	if l.drawn {
		fmt.Println()
	}
}

// glogLogger adapts glog to isp.Logger.
type glogLogger struct{}

func (glogLogger) Debug(msg string, kv ...interface{}) {
	if glog.V(1) {
		glog.InfoDepth(1, msg+formatKV(kv))
	}
}

func (glogLogger) Info(msg string, kv ...interface{}) {
	glog.InfoDepth(1, msg+formatKV(kv))
}

func (glogLogger) Error(msg string, kv ...interface{}) {
	glog.ErrorDepth(1, msg+formatKV(kv))
}

func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
