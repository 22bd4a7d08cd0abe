package nandimg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/marcinbor85/gohex"
	"golang.org/x/sync/errgroup"

	"github.com/ardnew/softnand/ecc"
	"github.com/ardnew/softnand/nfc"
	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

const component = pkg.ComponentImage

// Intel HEX data bytes per record.
const lineLength = 16

// Page is one page image.
type Page struct {
	Index uint32
	Data  []byte
}

// stride returns the image address step per page, failing when the last
// page of the range cannot be addressed by Intel HEX.
func stride(g nfc.Geometry, withSpare bool, end uint32) (uint32, error) {
	n := uint64(g.TransferSize(withSpare))
	if uint64(end)*n > math.MaxUint32+1 {
		return 0, fmt.Errorf("page %d beyond 4 GiB image: %w", end-1, pkg.ErrAddressRange)
	}
	return uint32(n), nil
}

func isErased(p []byte) bool {
	for _, b := range p {
		if b != 0xff {
			return false
		}
	}
	return true
}

// Dump reads count pages of bank starting at first without ECC and writes
// them to w as Intel HEX. Pages that read fully erased are omitted.
func Dump(c *nfc.Controller, bank int, first, count uint32, withSpare bool, timeout uint32, w io.Writer) error {
	g := c.Geometry()
	if uint64(first)+uint64(count) > uint64(g.PageCount()) {
		return fmt.Errorf("pages %d+%d: %w", first, count, pkg.ErrAddressRange)
	}
	step, err := stride(g, withSpare, first+count)
	if err != nil {
		return err
	}

	mem := gohex.NewMemory()
	buf := make([]byte, step)
	dumped := 0
	for i := uint32(0); i < count; i++ {
		page := first + i
		if err := c.ReadPageMeta(bank, page, buf, timeout); err != nil {
			return err
		}
		if isErased(buf) {
			continue
		}
		if err := mem.AddBinary(page*step, bytes.Clone(buf)); err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		dumped++
	}

	if err := mem.DumpIntelHex(w, lineLength); err != nil {
		return err
	}
	pkg.LogInfo(component, "image dumped", "bank", bank, "first", first, "count", count, "pages", dumped)
	return nil
}

// Load parses an Intel HEX image laid out for g and returns every page it
// touches in ascending order. Bytes a page does not cover read as erased.
func Load(r io.Reader, g nfc.Geometry, withSpare bool) ([]Page, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	step := uint32(g.TransferSize(withSpare))

	touched := make(map[uint32]bool)
	for _, seg := range mem.GetDataSegments() {
		if len(seg.Data) == 0 {
			continue
		}
		end := uint64(seg.Address) + uint64(len(seg.Data)) - 1
		for p := uint64(seg.Address) / uint64(step); p <= end/uint64(step); p++ {
			if p >= uint64(g.PageCount()) {
				return nil, fmt.Errorf("image address %#x: %w", end, pkg.ErrAddressRange)
			}
			touched[uint32(p)] = true
		}
	}

	pages := make([]Page, 0, len(touched))
	for p := range touched {
		pages = append(pages, Page{Index: p, Data: mem.ToBinary(p*step, step, 0xff)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })
	pkg.LogDebug(component, "image loaded", "pages", len(pages))
	return pages, nil
}

// Program writes pages to bank without ECC. Every page must be erased.
func Program(c *nfc.Controller, bank int, pages []Page, timeout uint32) error {
	for _, p := range pages {
		if err := c.WritePageMeta(bank, p.Index, p.Data, timeout); err != nil {
			return err
		}
	}
	pkg.LogInfo(component, "image programmed", "bank", bank, "pages", len(pages))
	return nil
}

// GenerateSpare expands a raw image of page data areas into page+spare
// images, filling each spare area with the ECC bytes the controller writes
// in mode. At most workers pages are encoded concurrently; workers < 1
// means no limit.
func GenerateSpare(ctx context.Context, data []byte, g nfc.Geometry, mode nfc.EccMode, workers int) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if mode > nfc.Ecc4Bit {
		return nil, fmt.Errorf("ecc mode %d: %w", mode, pkg.ErrInvalidParameter)
	}
	size := g.PageSize
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %d-byte pages: %w", len(data), size, pkg.ErrBufferLength)
	}
	pages := len(data) / size
	step := g.TransferSize(true)
	out := make([]byte, pages*step)

	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for p := 0; p < pages; p++ {
		p := p
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return encodePage(out[p*step:(p+1)*step], data[p*size:(p+1)*size], mode)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	pkg.LogDebug(component, "spare generated", "pages", pages, "mode", mode.String())
	return out, nil
}

// encodePage writes src and its spare area into dst.
func encodePage(dst, src []byte, mode nfc.EccMode) error {
	n := copy(dst, src)
	spare := dst[n:]
	for i := range spare {
		spare[i] = 0xff
	}
	for s := 0; s < len(src)/ecc.SectorSize; s++ {
		sector := src[s*ecc.SectorSize : (s+1)*ecc.SectorSize]
		off, _ := hal.EccSpareRange(uint32(mode), s)
		if mode == nfc.Ecc1Bit {
			code, err := ecc.HammingCode(sector)
			if err != nil {
				return err
			}
			ecc.PutHammingCode(spare[off:], code)
			continue
		}
		parity, err := ecc.BCHParity(sector)
		if err != nil {
			return err
		}
		copy(spare[off:], parity[:])
	}
	return nil
}
