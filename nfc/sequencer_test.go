package nfc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/nfc/hal/sim"
	"github.com/ardnew/softnand/pkg"
)

func TestExecute_TimeoutPollCount(t *testing.T) {
	tests := []uint32{0, 1, 17, 1000}

	for _, n := range tests {
		c, m := newMockController(t)
		m.neverReady = true
		m.resetCounts()

		err := c.Execute(0, CmdReset, Address{}, n)
		if !errors.Is(err, pkg.ErrTimeout) {
			t.Errorf("timeout %d: error = %v, want ErrTimeout", n, err)
		}
		if got := m.reads[hal.ISTR]; got != int(n) {
			t.Errorf("timeout %d: %d status polls", n, got)
		}
	}
}

func TestExecute_ReadyClearsFlag(t *testing.T) {
	c, _ := newSimController(t, sim.WithBusyPolls(5))
	if err := c.Execute(1, CmdReset, Address{}, 5); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	// 4 polls is one short of the busy time.
	if err := c.Execute(1, CmdReset, Address{}, 4); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecute_InvalidParameters(t *testing.T) {
	c, m := newMockController(t)
	m.resetCounts()

	tests := []struct {
		name string
		bank int
		addr Address
	}{
		{"negative bank", -1, Address{}},
		{"unconfigured bank", 2, Address{}},
		{"row", 0, Address{Row: 1 << 24}},
		{"column", 0, Address{Column: 1 << 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Execute(tt.bank, CmdReset, tt.addr, testTimeout)
			if !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("Execute() error = %v, want ErrInvalidParameter", err)
			}
		})
	}
	if m.accesses() != 0 {
		t.Errorf("%d register accesses for invalid parameters", m.accesses())
	}
}

func TestReadID(t *testing.T) {
	id := []byte{0x2c, 0xda, 0x90, 0x95, 0x06}
	c, _ := newSimController(t, sim.WithID(id))

	buf := make([]byte, 5)
	if err := c.ReadID(0, IDAddressJEDEC, buf, testTimeout); err != nil {
		t.Fatalf("ReadID() error = %v", err)
	}
	if !bytes.Equal(buf, id) {
		t.Errorf("ReadID() = % x, want % x", buf, id)
	}

	onfi := make([]byte, 4)
	if err := c.ReadID(0, IDAddressONFI, onfi, testTimeout); err != nil {
		t.Fatalf("ReadID(ONFI) error = %v", err)
	}
	if string(onfi) != "ONFI" {
		t.Errorf("ReadID(ONFI) = %q, want ONFI", onfi)
	}

	if err := c.ReadID(0, 0, make([]byte, 9), testTimeout); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("ReadID(9 bytes) error = %v, want ErrInvalidParameter", err)
	}
}

func TestReadStatus(t *testing.T) {
	c, _ := newSimController(t)
	st, err := c.ReadStatus(0)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if st.Failed() || !st.Ready() || st.WriteProtected() {
		t.Errorf("ReadStatus() = %#02x, want ready, not failed, not protected", uint8(st))
	}
}

func TestEraseBlock(t *testing.T) {
	c, _ := newSimController(t)
	g := c.Geometry()
	page := uint32(3 * g.PagesPerBlock)

	if err := c.WritePageMeta(0, page+1, pattern(2048, 9), testTimeout); err != nil {
		t.Fatalf("WritePageMeta() error = %v", err)
	}
	if err := c.EraseBlock(0, 3, testTimeout); err != nil {
		t.Fatalf("EraseBlock() error = %v", err)
	}

	buf := make([]byte, g.TransferSize(true))
	for p := page; p < page+uint32(g.PagesPerBlock); p++ {
		if err := c.ReadPageMeta(0, p, buf, testTimeout); err != nil {
			t.Fatalf("ReadPageMeta(%d) error = %v", p, err)
		}
		for i, b := range buf {
			if b != 0xff {
				t.Fatalf("page %d byte %d = %#02x after erase", p, i, b)
			}
		}
	}
}

func TestEraseBlock_Failure(t *testing.T) {
	c, s := newSimController(t)
	s.FailNext(0)

	err := c.EraseBlock(0, 7, testTimeout)
	if !errors.Is(err, ErrEraseFailed) || !errors.Is(err, pkg.ErrDevice) {
		t.Errorf("EraseBlock() error = %v, want ErrEraseFailed", err)
	}
	if pkg.StatusOf(err) != pkg.StatusError {
		t.Errorf("StatusOf() = %v, want error", pkg.StatusOf(err))
	}
	if err := c.EraseBlock(0, 7, testTimeout); err != nil {
		t.Errorf("EraseBlock() retry error = %v", err)
	}
}

func TestEraseBlock_Range(t *testing.T) {
	c, m := newMockController(t)
	m.resetCounts()
	if err := c.EraseBlock(0, 2048, testTimeout); !errors.Is(err, pkg.ErrAddressRange) {
		t.Errorf("EraseBlock() error = %v, want ErrAddressRange", err)
	}
	if m.accesses() != 0 {
		t.Errorf("%d register accesses for invalid block", m.accesses())
	}
}

func TestEraseBlock_Timeout(t *testing.T) {
	c, s := newSimController(t)
	s.SetStuck(0, true)
	if err := c.EraseBlock(0, 1, 10); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("EraseBlock() error = %v, want ErrTimeout", err)
	}
}

func TestReadParameterPage(t *testing.T) {
	c, _ := newSimController(t)
	p, err := c.ReadParameterPage(0, testTimeout)
	if err != nil {
		t.Fatalf("ReadParameterPage() error = %v", err)
	}
	if p.PageSize != 2048 || p.SpareSize != 64 || p.PagesPerBlock != 64 || p.BlocksPerLUN != 2048 {
		t.Errorf("ReadParameterPage() = %+v", p)
	}
	if p.Manufacturer != "SOFTNAND" {
		t.Errorf("Manufacturer = %q", p.Manufacturer)
	}
	g, err := p.Geometry()
	if err != nil {
		t.Fatalf("Geometry() error = %v", err)
	}
	want := testGeometry()
	want.Banks = 1
	if g != want {
		t.Errorf("Geometry() = %+v, want %+v", g, want)
	}
}

func TestParseParameterPage_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		page []byte
	}{
		{"short", make([]byte, 10)},
		{"signature", make([]byte, hal.ParamPageSize)},
	}
	for _, tt := range tests {
		if _, err := ParseParameterPage(tt.page); !errors.Is(err, ErrParameterPage) {
			t.Errorf("%s: error = %v, want ErrParameterPage", tt.name, err)
		}
	}

	bad := make([]byte, hal.ParamPageSize)
	copy(bad, "ONFI")
	bad[80] = 1
	if _, err := ParseParameterPage(bad); !errors.Is(err, ErrParameterPage) {
		t.Errorf("crc: error = %v, want ErrParameterPage", err)
	}
}

func TestCommand_String(t *testing.T) {
	if got := CmdReadParameterPage.String(); got != "READ PARAMETER PAGE" {
		t.Errorf("String() = %q", got)
	}
	if got := Command(0x42).String(); got != "CMD(0x42)" {
		t.Errorf("String() = %q", got)
	}
}
