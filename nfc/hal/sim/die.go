package sim

// NAND status register bits.
const (
	statusFail     = 0x01
	statusNotWP    = 0x80
	statusReadyAll = 0x60 // RDY and ARDY
)

// die models one NAND target: a sparse page array where a missing page is
// erased. Programming can only clear bits.
type die struct {
	pages    map[uint32][]byte
	status   byte
	failNext bool
}

func newDie() *die {
	return &die{
		pages:  make(map[uint32][]byte),
		status: statusNotWP | statusReadyAll,
	}
}

func erased(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 0xff
	}
	return b
}

// read returns a copy of row, size bytes long.
func (d *die) read(row uint32, size int) []byte {
	out := erased(size)
	if p, ok := d.pages[row]; ok {
		copy(out, p)
	}
	return out
}

// page returns the stored page for row, materializing an erased one.
func (d *die) page(row uint32, size int) []byte {
	p, ok := d.pages[row]
	if !ok || len(p) < size {
		np := erased(size)
		copy(np, p)
		d.pages[row] = np
		p = np
	}
	return p
}

func (d *die) program(row uint32, data []byte, protected bool) {
	if d.fail(protected) {
		return
	}
	p := d.page(row, len(data))
	for i, b := range data {
		p[i] &= b
	}
}

func (d *die) erase(first uint32, count int, protected bool) {
	if d.fail(protected) {
		return
	}
	for i := 0; i < count; i++ {
		delete(d.pages, first+uint32(i))
	}
}

// fail updates the status register for a program or erase and reports
// whether the operation must be suppressed.
func (d *die) fail(protected bool) bool {
	d.status = statusNotWP | statusReadyAll
	switch {
	case protected:
		d.status = statusReadyAll | statusFail
		return true
	case d.failNext:
		d.failNext = false
		d.status |= statusFail
		return true
	}
	return false
}
