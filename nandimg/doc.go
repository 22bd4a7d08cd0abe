// Package nandimg moves NAND contents in and out of Intel HEX images and
// prepares raw images for programming.
//
// A page is placed in the image at page index times the transfer size (page
// data alone, or page data followed by the spare area). Erased pages are left
// out of dumps, and gaps read back as erased.
//
// GenerateSpare computes the ECC bytes the controller would write for each
// page of a raw data image, so an image can be programmed without ECC and
// later read back with hardware ECC.
package nandimg
