package nfc

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

// Controller drives one NAND flash controller through its HAL.
//
// Exactly one operation may be in flight per controller. Synchronous
// operations enforce nothing; the caller must not overlap them. Asynchronous
// operations are guarded so that at most one is pending.
type Controller struct {
	hal  hal.HAL
	cfg  Config
	bacr uint32

	// logger replaces the pkg default logger when set
	logger *slog.Logger

	initialized bool

	// ECC state of the last hardware ECC read
	lastEccMode  EccMode
	lastEccValid bool
	eccSections  uint32

	// Pending asynchronous operation
	mutex   sync.Mutex
	pending *pendingOp
}

// New creates a controller over h. If h implements hal.InterruptSource the
// controller installs HandleInterrupt as its interrupt handler.
func New(h hal.HAL) *Controller {
	c := &Controller{hal: h}
	if src, ok := h.(hal.InterruptSource); ok {
		src.SetInterruptHandler(c.HandleInterrupt)
	}
	return c
}

// Init validates cfg, routes the pins, enables the controller clock, programs
// the bank configuration and timing registers, and resets every bank.
//
// A reset that never reports ready within cfg.ResetTimeout polls fails Init
// with pkg.ErrTimeout. Nothing is retried and no partial state is rolled
// back; the caller re-runs Init from scratch.
func (c *Controller) Init(cfg Config) error {
	if c.initialized {
		return pkg.ErrAlreadyInitialized
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.logger = cfg.Logger

	if err := c.hal.ConfigurePins(); err != nil {
		return fmt.Errorf("configure pins: %w", err)
	}
	c.hal.EnableClock(true)

	c.cfg = cfg
	c.bacr = cfg.Geometry.bacr(cfg.EccMode)
	c.hal.Write32(hal.BACR, c.bacr)
	tmcr := cfg.Timing.registers()
	c.hal.Write32(hal.TMCR0, tmcr[0])
	c.hal.Write32(hal.TMCR1, tmcr[1])
	c.hal.Write32(hal.TMCR2, tmcr[2])
	c.hal.Write32(hal.IENR, 0)
	c.hal.Write32(hal.ECCCR, 0)
	c.hal.Write32(hal.ISTR, ^uint32(0))

	c.log(pkg.ComponentController).Debug("bank configuration written",
		"bacr", fmt.Sprintf("%#08x", c.bacr),
		"tmcr0", fmt.Sprintf("%#08x", tmcr[0]),
		"tmcr1", fmt.Sprintf("%#08x", tmcr[1]),
		"tmcr2", fmt.Sprintf("%#08x", tmcr[2]))

	for bank := 0; bank < cfg.Geometry.Banks; bank++ {
		if err := c.reset(bank, cfg.ResetTimeout); err != nil {
			c.log(pkg.ComponentController).Error("bank reset failed", "bank", bank, "error", err)
			return err
		}
	}

	c.initialized = true
	c.log(pkg.ComponentController).Info("controller initialized",
		"capacity", cfg.Geometry.Capacity.String(),
		"banks", cfg.Geometry.Banks,
		"pageSize", cfg.Geometry.PageSize,
		"ecc", cfg.EccMode.String())
	return nil
}

// Deinit disables interrupts and gates the controller clock.
func (c *Controller) Deinit() error {
	if !c.initialized {
		return pkg.ErrNotInitialized
	}
	c.mutex.Lock()
	busy := c.pending != nil
	c.mutex.Unlock()
	if busy {
		return pkg.ErrBusy
	}

	c.hal.Write32(hal.IENR, 0)
	c.hal.EnableClock(false)
	c.initialized = false
	c.lastEccValid = false
	c.log(pkg.ComponentController).Info("controller deinitialized")
	return nil
}

// log returns the logger for component: Config.Logger when one was given,
// otherwise the pkg default logger current at the time of the call.
func (c *Controller) log(component pkg.Component) *slog.Logger {
	if c.logger != nil {
		return c.logger.With("component", string(component))
	}
	return pkg.ComponentLogger(component)
}

// Initialized reports whether Init has completed.
func (c *Controller) Initialized() bool {
	return c.initialized
}

// Geometry returns the configured geometry.
func (c *Controller) Geometry() Geometry {
	return c.cfg.Geometry
}

// EccMode returns the ECC mode currently programmed in BACR.
func (c *Controller) EccMode() EccMode {
	return EccMode(hal.BACREccMode.Get(c.bacr))
}

// SetWriteProtect asserts or releases the WP# line of every bank.
func (c *Controller) SetWriteProtect(protect bool) error {
	if !c.initialized {
		return pkg.ErrNotInitialized
	}
	var v uint32
	if protect {
		v = 1
	}
	c.bacr = hal.BACRWriteProt.Set(c.bacr, v)
	c.hal.Write32(hal.BACR, c.bacr)
	return nil
}

// setEccMode reprograms the BACR ECC mode field if it differs from mode.
func (c *Controller) setEccMode(mode EccMode) {
	v := hal.BACREccMode.Set(c.bacr, uint32(mode))
	if v != c.bacr {
		c.bacr = v
		c.hal.Write32(hal.BACR, v)
	}
}

func (c *Controller) checkBank(bank int) error {
	if !c.initialized {
		return pkg.ErrNotInitialized
	}
	if bank < 0 || bank >= c.cfg.Geometry.Banks {
		return fmt.Errorf("bank %d: %w", bank, pkg.ErrAddressRange)
	}
	return nil
}
