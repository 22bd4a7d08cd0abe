package nfc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

// ParameterPage holds the fields of an ONFI parameter page used to derive a
// geometry.
type ParameterPage struct {
	Revision      uint16
	Manufacturer  string
	Model         string
	JEDECID       uint8
	PageSize      uint32
	SpareSize     uint16
	PagesPerBlock uint32
	BlocksPerLUN  uint32
	LUNs          uint8
	RowCycles     int
	ColumnCycles  int
}

// ParseParameterPage decodes one parameter page copy and verifies its CRC.
func ParseParameterPage(p []byte) (*ParameterPage, error) {
	if len(p) < hal.ParamPageSize {
		return nil, fmt.Errorf("%d bytes: %w", len(p), ErrParameterPage)
	}
	if !bytes.Equal(p[:4], []byte("ONFI")) {
		return nil, fmt.Errorf("signature % x: %w", p[:4], ErrParameterPage)
	}
	want := binary.LittleEndian.Uint16(p[254:])
	if got := hal.ParamPageCRC(p[:254]); got != want {
		return nil, fmt.Errorf("crc %#04x, want %#04x: %w", got, want, ErrParameterPage)
	}
	return &ParameterPage{
		Revision:      binary.LittleEndian.Uint16(p[4:]),
		Manufacturer:  string(bytes.TrimRight(p[32:44], " \x00")),
		Model:         string(bytes.TrimRight(p[44:64], " \x00")),
		JEDECID:       p[64],
		PageSize:      binary.LittleEndian.Uint32(p[80:]),
		SpareSize:     binary.LittleEndian.Uint16(p[84:]),
		PagesPerBlock: binary.LittleEndian.Uint32(p[92:]),
		BlocksPerLUN:  binary.LittleEndian.Uint32(p[96:]),
		LUNs:          p[100],
		RowCycles:     int(p[101] & 0x0f),
		ColumnCycles:  int(p[101] >> 4),
	}, nil
}

// Geometry derives a single-bank geometry from the parameter page.
func (p *ParameterPage) Geometry() (Geometry, error) {
	total := uint64(p.PageSize) * uint64(p.PagesPerBlock) * uint64(p.BlocksPerLUN) * uint64(p.LUNs)
	for c := Capacity512Mb; c <= Capacity64Gb; c++ {
		if c.Bytes() != total {
			continue
		}
		g := Geometry{
			Capacity:      c,
			Banks:         1,
			PageSize:      int(p.PageSize),
			PagesPerBlock: int(p.PagesPerBlock),
			RowCycles:     p.RowCycles,
			BusWidth:      8,
		}
		return g, g.Validate()
	}
	return Geometry{}, fmt.Errorf("capacity %d bytes: %w", total, pkg.ErrNotSupported)
}

// ReadParameterPage reads and decodes the bank's ONFI parameter page.
func (c *Controller) ReadParameterPage(bank int, timeout uint32) (*ParameterPage, error) {
	if err := c.checkBank(bank); err != nil {
		return nil, err
	}
	if err := c.execute(bank, CmdReadParameterPage, Address{}, timeout); err != nil {
		return nil, err
	}
	buf := make([]byte, hal.ParamPageSize)
	c.readData(buf)
	return ParseParameterPage(buf)
}
