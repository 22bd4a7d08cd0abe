package nfc

import (
	"fmt"

	"github.com/ardnew/softnand/ecc"
	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

func (c *Controller) checkSection(section int, mode EccMode) error {
	if !c.initialized {
		return pkg.ErrNotInitialized
	}
	if section < 0 || section >= c.cfg.Geometry.Sections() {
		return fmt.Errorf("section %d: %w", section, pkg.ErrAddressRange)
	}
	if !c.lastEccValid || c.lastEccMode != mode {
		return fmt.Errorf("%s: %w", mode, ErrNoEccResult)
	}
	return nil
}

// EccErrorSections returns the bitmap of sections (bit n for section n) whose
// syndrome was non-zero in the last hardware ECC read.
func (c *Controller) EccErrorSections() uint32 {
	if !c.lastEccValid {
		return 0
	}
	return c.eccSections
}

// GetEcc1BitResult decodes the 1-bit ECC syndrome register of section.
func (c *Controller) GetEcc1BitResult(section int) (ecc.Ecc1Result, error) {
	if err := c.checkSection(section, Ecc1Bit); err != nil {
		return ecc.Ecc1Result{}, err
	}
	syn := hal.ECCRSyndrome.Get(c.hal.Read32(hal.ECCR(section)))
	return ecc.DecodeHamming(syn), nil
}

// GetEcc4Syndromes returns the raw S1..S8 syndrome registers of section.
func (c *Controller) GetEcc4Syndromes(section int) ([ecc.BCHSyndromeCount]uint16, error) {
	var s [ecc.BCHSyndromeCount]uint16
	if err := c.checkSection(section, Ecc4Bit); err != nil {
		return s, err
	}
	for w := range s {
		s[w] = uint16(hal.SYNDValue.Get(c.hal.Read32(hal.SYND(section, w))))
	}
	return s, nil
}

// GetEcc4BitResult decodes the 4-bit ECC syndromes of section.
func (c *Controller) GetEcc4BitResult(section int) (ecc.Ecc4Result, error) {
	s, err := c.GetEcc4Syndromes(section)
	if err != nil {
		return ecc.Ecc4Result{}, err
	}
	return ecc.DecodeEcc4BitsErrors(s), nil
}

// CorrectPage applies the results of the last hardware ECC read to buf, the
// data area returned by that read. It returns the number of data bits
// corrected, or ecc.ErrUncorrectable naming the first section that could not
// be corrected.
func (c *Controller) CorrectPage(buf []byte) (int, error) {
	if !c.lastEccValid {
		return 0, ErrNoEccResult
	}
	if len(buf) != c.cfg.Geometry.PageSize {
		return 0, fmt.Errorf("%d bytes: %w", len(buf), pkg.ErrBufferLength)
	}

	corrected := 0
	for s := 0; s < c.cfg.Geometry.Sections(); s++ {
		if c.eccSections&(1<<s) == 0 {
			continue
		}
		sector := buf[s*ecc.SectorSize : (s+1)*ecc.SectorSize]

		if c.lastEccMode == Ecc1Bit {
			r, err := c.GetEcc1BitResult(s)
			if err != nil {
				return corrected, err
			}
			switch r.Class {
			case ecc.EccCorrectable:
				if err := ecc.Correct(sector, r.Location); err != nil {
					return corrected, err
				}
				corrected++
			case ecc.EccUncorrectable:
				return corrected, fmt.Errorf("section %d: %w", s, ecc.ErrUncorrectable)
			}
			continue
		}

		r, err := c.GetEcc4BitResult(s)
		if err != nil {
			return corrected, err
		}
		if err := r.CorrectAll(sector); err != nil {
			return corrected, fmt.Errorf("section %d: %w", s, err)
		}
		corrected += len(r.Locations)
	}

	if corrected > 0 {
		c.log(pkg.ComponentECC).Info("corrected bit errors", "bits", corrected)
	}
	return corrected, nil
}
