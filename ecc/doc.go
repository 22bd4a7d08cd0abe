// Package ecc implements the error-correcting codes computed by the NAND
// flash controller for every 512-byte sector of a page.
//
// Two codes are provided:
//
//   - A Hamming code storing 24 bits per sector. It corrects one bit error
//     and detects two. [HammingCode] computes the stored code, [DecodeHamming]
//     classifies the syndrome the controller reports after a read.
//   - A binary BCH code over GF(2^13) with t=4, storing 52 parity bits
//     (7 bytes) per sector. [BCHParity] computes the stored parity,
//     [BCHSyndromes] the eight syndromes the controller reports, and
//     [DecodeEcc4BitsErrors] recovers up to four error locations.
//
// Both stored forms are chosen so that an erased sector (data and code all
// 0xFF) decodes without error.
//
// Decoding is advisory: nothing in this package mutates a sector unless the
// caller asks for it with [Correct].
package ecc
