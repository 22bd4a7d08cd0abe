package nfc

import (
	"sync"
	"testing"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/nfc/hal/sim"
)

const testTimeout = 100

// mockHAL implements hal.HAL, recording every register access. Every bank
// reports ready unless neverReady is set.
type mockHAL struct {
	mutex      sync.Mutex
	regs       map[hal.Reg]uint32
	reads      map[hal.Reg]int
	writes     []hal.Reg
	neverReady bool
	clock      bool
	pins       bool
}

func newMockHAL() *mockHAL {
	return &mockHAL{
		regs:  make(map[hal.Reg]uint32),
		reads: make(map[hal.Reg]int),
	}
}

func (m *mockHAL) Read32(reg hal.Reg) uint32 {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reads[reg]++
	if reg == hal.ISTR {
		if m.neverReady {
			return 0
		}
		return hal.IntReady.Mask()
	}
	return m.regs[reg]
}

func (m *mockHAL) Write32(reg hal.Reg, value uint32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.writes = append(m.writes, reg)
	m.regs[reg] = value
}

func (m *mockHAL) EnableClock(enable bool) {
	m.clock = enable
}

func (m *mockHAL) ConfigurePins() error {
	m.pins = true
	return nil
}

// accesses returns the total number of register reads and writes.
func (m *mockHAL) accesses() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := len(m.writes)
	for _, c := range m.reads {
		n += c
	}
	return n
}

func (m *mockHAL) resetCounts() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.writes = nil
	m.reads = make(map[hal.Reg]int)
}

func testGeometry() Geometry {
	return Geometry{
		Capacity:      Capacity2Gb,
		Banks:         2,
		PageSize:      2048,
		PagesPerBlock: 64,
		RowCycles:     3,
		BusWidth:      8,
	}
}

func testTiming() Timing {
	return Timing{
		TS: 2, TWP: 2, TRP: 2, TH: 1, TWH: 2, TRH: 2,
		TRR: 3, TWB: 10, TCCS: 20, TWTR: 6, TRTW: 10, TADL: 7,
	}
}

func testConfig() Config {
	return Config{
		Geometry:     testGeometry(),
		Timing:       testTiming(),
		EccMode:      Ecc1Bit,
		ResetTimeout: testTimeout,
	}
}

func newMockController(t *testing.T) (*Controller, *mockHAL) {
	t.Helper()
	m := newMockHAL()
	c := New(m)
	if err := c.Init(testConfig()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return c, m
}

func newSimController(t *testing.T, opts ...sim.Option) (*Controller, *sim.HAL) {
	t.Helper()
	s := sim.New(opts...)
	c := New(s)
	if err := c.Init(testConfig()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return c, s
}

func pattern(n int, seed byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i*7) ^ seed
	}
	return buf
}
