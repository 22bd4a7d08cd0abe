package nfc

import (
	"context"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

// Completion is a single-slot result cell for an asynchronous operation. The
// interrupt handler fills it exactly once.
type Completion struct {
	done chan struct{}
	err  error
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

func (c *Completion) complete(err error) {
	c.err = err
	close(c.done)
}

// Done returns a channel closed when the operation completes.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Poll reports whether the operation completed and, if so, its result.
func (c *Completion) Poll() (bool, error) {
	select {
	case <-c.done:
		return true, c.err
	default:
		return false, nil
	}
}

// Wait blocks until the operation completes or ctx is done. Returning on ctx
// does not cancel the operation; it stays pending until its interrupt or a
// reset of its bank.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.err
	}
}

type pendingOp struct {
	bank   int
	finish func() error
	done   *Completion
}

// begin reserves the controller for one asynchronous operation.
func (c *Controller) begin(bank int, finish func() error) (*Completion, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pending != nil {
		return nil, pkg.ErrBusy
	}
	c.pending = &pendingOp{bank: bank, finish: finish, done: newCompletion()}

	rb := hal.ReadyBit(bank)
	c.hal.Write32(hal.ISTR, rb)
	c.hal.Write32(hal.IENR, rb)
	return c.pending.done, nil
}

// abort completes a pending operation on bank with ErrAborted.
func (c *Controller) abort(bank int) {
	c.mutex.Lock()
	op := c.pending
	if op == nil || op.bank != bank {
		c.mutex.Unlock()
		return
	}
	c.pending = nil
	c.hal.Write32(hal.IENR, 0)
	c.mutex.Unlock()

	c.log(pkg.ComponentController).Warn("pending operation aborted", "bank", bank)
	op.done.complete(ErrAborted)
}

// Pending reports whether an asynchronous operation is outstanding.
func (c *Controller) Pending() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.pending != nil
}

// HandleInterrupt is the controller interrupt service routine. It
// acknowledges the ready flag of the pending operation's bank, reads the
// device status and completes the operation. Interrupts with nothing pending
// are ignored.
func (c *Controller) HandleInterrupt() {
	c.mutex.Lock()
	op := c.pending
	if op == nil {
		c.mutex.Unlock()
		c.log(pkg.ComponentController).Debug("spurious interrupt")
		return
	}
	rb := hal.ReadyBit(op.bank)
	if c.hal.Read32(hal.ISTR)&rb == 0 {
		c.mutex.Unlock()
		return
	}
	c.hal.Write32(hal.ISTR, rb)
	c.hal.Write32(hal.IENR, 0)
	c.pending = nil
	c.mutex.Unlock()

	op.done.complete(op.finish())
}

// EraseBlockAsync starts erasing a block and returns immediately. The
// operation completes from HandleInterrupt.
func (c *Controller) EraseBlockAsync(bank int, block uint32) (*Completion, error) {
	row, err := c.checkBlock(bank, block)
	if err != nil {
		return nil, err
	}
	done, err := c.begin(bank, func() error {
		return c.checkStatus(bank, ErrEraseFailed)
	})
	if err != nil {
		return nil, err
	}
	c.setAddress(Address{Row: row})
	c.issue(bank, CmdEraseSetup)
	c.issue(bank, CmdEraseConfirm)
	c.log(pkg.ComponentSequencer).Debug("erase started", "bank", bank, "block", block)
	return done, nil
}

// WritePageMetaAsync starts programming a page without ECC and returns once
// the data is transferred. The operation completes from HandleInterrupt.
func (c *Controller) WritePageMetaAsync(bank int, page uint32, buf []byte) (*Completion, error) {
	if _, err := c.checkTransfer(bank, page, len(buf), true); err != nil {
		return nil, err
	}
	done, err := c.begin(bank, func() error {
		return c.checkStatus(bank, ErrProgramFailed)
	})
	if err != nil {
		return nil, err
	}
	c.hal.Write32(hal.ECCCR, 0)
	c.setAddress(Address{Row: page})
	c.issue(bank, CmdProgramSetup)
	c.writeData(buf)
	c.issue(bank, CmdProgramConfirm)
	c.log(pageComponent).Debug("program started", "bank", bank, "page", page)
	return done, nil
}
