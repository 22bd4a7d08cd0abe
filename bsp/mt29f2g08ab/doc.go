// Package mt29f2g08ab provides the board glue for a Micron MT29F2G08AB
// 2 Gb x8 SLC NAND device on the controller's first bank.
//
// The package supplies the device geometry, its AC timing parameters in
// nanoseconds, conversion of those timings to controller cycles for a
// given clock, and an Init helper that configures a controller and checks
// the device ID.
//
// Example:
//
//	ctrl, err := mt29f2g08ab.Init(h, 120_000_000, nfc.Ecc4Bit)
//	if err != nil {
//		return err
//	}
//	err = ctrl.ReadPageHwEcc(0, page, buf, nfc.Ecc4Bit, mt29f2g08ab.ReadTimeout)
package mt29f2g08ab
