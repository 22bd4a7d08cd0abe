// Package storage exposes NAND flash through a block device interface.
//
// NAND implements Storage over an nfc.Controller bank. A logical block is the
// data area of one page. Reads go through hardware ECC and correct
// correctable bit errors; writes rewrite the containing erase block
// (read, erase, program) since NAND pages cannot be overwritten in place.
// There is no bad-block management or wear leveling.
//
// MemoryStorage implements the same interface over a byte slice and serves
// as a reference model and test double.
package storage
