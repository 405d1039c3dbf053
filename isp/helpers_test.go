package isp

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/moffa90/go-ktdp/dpcd"
	"github.com/moffa90/go-ktdp/firmware"
)

// sleepRecorder replaces the poll sleep and accounts for the time that
// would have been spent.
type sleepRecorder struct {
	mu    sync.Mutex
	calls int
	total time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls++
	r.total += d
	r.mu.Unlock()
	return ctx.Err()
}

// MockLogger records messages for assertions.
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, fmt.Sprint(msg, kv))
}

func newTestSession(dev dpcd.Transport, rec *sleepRecorder, opts ...Option) *Session {
	opts = append([]Option{WithSleepFunc(rec.sleep)}, opts...)
	return New(dev, opts...)
}

// testAppInfo describes an image whose App section spans two AUX window chunks.
func testAppInfo() *firmware.AppInfo {
	return &firmware.AppInfo{
		AppID:             "KT50",
		ESMSize:           0x1000,
		AppSize:           0x9000,
		InitSize:          0x100,
		CMDBSize:          0x40,
		StdFwVer:          0x010600,
		CustomerProjectID: 0x10,
		CustomerFwVer:     0x0103,
	}
}

func testImage(t *testing.T, drvSize int, info *firmware.AppInfo) *firmware.Image {
	t.Helper()

	app, err := firmware.Blank(info)
	if err != nil {
		t.Fatalf("Blank() error = %v", err)
	}
	for i := 0; i < firmware.AppIDStart; i++ {
		app[i] = byte(i*7 + i>>8)
	}

	drv := make([]byte, drvSize)
	for i := range drv {
		drv[i] = byte(0xA5 ^ i)
	}

	img, err := firmware.New(drv, app)
	if err != nil {
		t.Fatalf("firmware.New() error = %v", err)
	}
	return img
}

// expectedStream is every byte the sink should acknowledge for img.
func expectedStream(img *firmware.Image, secure bool) []byte {
	out := append([]byte(nil), img.ISPDriver...)
	for _, s := range img.Info.Sections(secure) {
		out = append(out, img.Section(s)...)
	}
	return out
}
