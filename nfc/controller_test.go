package nfc

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/nfc/hal/sim"
	"github.com/ardnew/softnand/pkg"
)

func TestInit(t *testing.T) {
	c, m := newMockController(t)

	if !m.clock {
		t.Error("clock not enabled")
	}
	if !m.pins {
		t.Error("pins not configured")
	}
	if !c.Initialized() {
		t.Error("Initialized() = false")
	}
	if got, want := m.regs[hal.BACR], testGeometry().bacr(Ecc1Bit); got != want {
		t.Errorf("BACR = %#08x, want %#08x", got, want)
	}
	tmcr := testTiming().registers()
	if m.regs[hal.TMCR0] != tmcr[0] || m.regs[hal.TMCR1] != tmcr[1] || m.regs[hal.TMCR2] != tmcr[2] {
		t.Errorf("TMCR = %#08x %#08x %#08x, want %#08x", m.regs[hal.TMCR0], m.regs[hal.TMCR1], m.regs[hal.TMCR2], tmcr)
	}
	if got := hal.CMDRCommand.Get(m.regs[hal.CMDR]); got != uint32(CmdReset) {
		t.Errorf("last command = %#02x, want RESET", got)
	}
	if got := hal.CMDRBank.Get(m.regs[hal.CMDR]); got != 1 {
		t.Errorf("last reset bank = %d, want 1", got)
	}
}

func TestInit_Twice(t *testing.T) {
	c, _ := newMockController(t)
	if err := c.Init(testConfig()); !errors.Is(err, pkg.ErrAlreadyInitialized) {
		t.Errorf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestInit_InvalidConfig(t *testing.T) {
	m := newMockHAL()
	c := New(m)
	cfg := testConfig()
	cfg.Geometry.PageSize = 1000

	if err := c.Init(cfg); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Fatalf("Init() error = %v, want ErrInvalidParameter", err)
	}
	if m.accesses() != 0 || m.clock || m.pins {
		t.Error("invalid config touched the hardware")
	}
}

func TestInit_ResetTimeout(t *testing.T) {
	s := sim.New()
	s.SetStuck(1, true)
	c := New(s)

	err := c.Init(testConfig())
	if !errors.Is(err, pkg.ErrTimeout) {
		t.Fatalf("Init() error = %v, want ErrTimeout", err)
	}
	if pkg.StatusOf(err) != pkg.StatusTimeout {
		t.Errorf("StatusOf() = %v, want timeout", pkg.StatusOf(err))
	}
	if c.Initialized() {
		t.Error("Initialized() = true after failed reset")
	}

	s.SetStuck(1, false)
	if err := c.Init(testConfig()); err != nil {
		t.Errorf("Init() retry error = %v", err)
	}
}

func TestDeinit(t *testing.T) {
	c, s := newSimController(t)
	if !s.ClockEnabled() || !s.PinsConfigured() {
		t.Fatal("Init did not enable clock and pins")
	}
	if err := c.Deinit(); err != nil {
		t.Fatalf("Deinit() error = %v", err)
	}
	if s.ClockEnabled() {
		t.Error("clock still enabled")
	}
	if err := c.Deinit(); !errors.Is(err, pkg.ErrNotInitialized) {
		t.Errorf("second Deinit() error = %v, want ErrNotInitialized", err)
	}
	if err := c.EraseBlock(0, 0, testTimeout); !errors.Is(err, pkg.ErrNotInitialized) {
		t.Errorf("EraseBlock() after Deinit error = %v, want ErrNotInitialized", err)
	}
}

func TestNotInitialized(t *testing.T) {
	m := newMockHAL()
	c := New(m)
	buf := make([]byte, 2048)

	if err := c.ReadPageMeta(0, 0, buf, testTimeout); !errors.Is(err, pkg.ErrNotInitialized) {
		t.Errorf("ReadPageMeta() error = %v, want ErrNotInitialized", err)
	}
	if _, err := c.ReadStatus(0); !errors.Is(err, pkg.ErrNotInitialized) {
		t.Errorf("ReadStatus() error = %v, want ErrNotInitialized", err)
	}
	if m.accesses() != 0 {
		t.Errorf("%d register accesses before Init", m.accesses())
	}
}

func TestSetWriteProtect(t *testing.T) {
	c, _ := newSimController(t)
	if err := c.EraseBlock(0, 1, testTimeout); err != nil {
		t.Fatalf("EraseBlock() error = %v", err)
	}
	if err := c.SetWriteProtect(true); err != nil {
		t.Fatalf("SetWriteProtect() error = %v", err)
	}
	err := c.WritePageMeta(0, 64, pattern(2048, 1), testTimeout)
	if !errors.Is(err, ErrWriteProtected) || !errors.Is(err, pkg.ErrDevice) {
		t.Errorf("WritePageMeta() error = %v, want ErrWriteProtected", err)
	}
	if err := c.SetWriteProtect(false); err != nil {
		t.Fatalf("SetWriteProtect() error = %v", err)
	}
	if err := c.WritePageMeta(0, 64, pattern(2048, 1), testTimeout); err != nil {
		t.Errorf("WritePageMeta() error = %v", err)
	}
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.Logger = pkg.NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	c := New(sim.New())
	if err := c.Init(cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := c.EraseBlock(0, 1, testTimeout); err != nil {
		t.Fatalf("EraseBlock() error = %v", err)
	}
	if err := c.ReadPageMeta(0, 0, make([]byte, testGeometry().PageSize), testTimeout); err != nil {
		t.Fatalf("ReadPageMeta() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"component=controller",
		"component=sequencer",
		"component=pageio",
		`msg="block erased"`,
		`msg="page read"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestDefaultLogger_Replaced(t *testing.T) {
	c, _ := newSimController(t)

	prev := pkg.DefaultLogger
	t.Cleanup(func() { pkg.SetLogger(prev) })
	var buf bytes.Buffer
	pkg.SetLogger(pkg.NewJSONLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := c.Reset(0, testTimeout); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if out := buf.String(); !strings.Contains(out, `"component":"sequencer"`) ||
		!strings.Contains(out, `"msg":"bank reset"`) {
		t.Errorf("log output = %q, want sequencer reset record", out)
	}
}
