package ecc

import (
	"errors"
	"math/rand"
	"testing"
)

func randomSector(seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	sector := make([]byte, SectorSize)
	rng.Read(sector)
	return sector
}

func erasedSector() []byte {
	sector := make([]byte, SectorSize)
	for i := range sector {
		sector[i] = 0xff
	}
	return sector
}

func TestHammingCode_Erased(t *testing.T) {
	code, err := HammingCode(erasedSector())
	if err != nil {
		t.Fatalf("HammingCode() error = %v", err)
	}
	if code != 0xffffff {
		t.Errorf("HammingCode(erased) = %#06x, want 0xffffff", code)
	}
}

func TestHammingCode_SectorSize(t *testing.T) {
	if _, err := HammingCode(make([]byte, SectorSize-1)); !errors.Is(err, ErrSectorSize) {
		t.Errorf("HammingCode(short) error = %v, want ErrSectorSize", err)
	}
}

func TestDecodeHamming_NoError(t *testing.T) {
	sector := randomSector(1)
	code, _ := HammingCode(sector)
	syn, err := HammingSyndrome(sector, code)
	if err != nil {
		t.Fatalf("HammingSyndrome() error = %v", err)
	}
	if got := DecodeHamming(syn); got.Class != EccNoError {
		t.Errorf("DecodeHamming() class = %v, want %v", got.Class, EccNoError)
	}
}

func TestDecodeHamming_EverySingleBit(t *testing.T) {
	sector := randomSector(2)
	code, _ := HammingCode(sector)

	for pos := 0; pos < SectorSize*8; pos++ {
		want := BitLocation{Byte: uint16(pos / 8), Bit: uint8(pos % 8)}
		sector[want.Byte] ^= 1 << want.Bit

		syn, _ := HammingSyndrome(sector, code)
		got := DecodeHamming(syn)
		if got.Class != EccCorrectable {
			t.Fatalf("bit %d: class = %v, want %v", pos, got.Class, EccCorrectable)
		}
		if got.Location != want {
			t.Fatalf("bit %d: location = %+v, want %+v", pos, got.Location, want)
		}

		sector[want.Byte] ^= 1 << want.Bit
	}
}

func TestDecodeHamming_CodeBit(t *testing.T) {
	sector := randomSector(3)
	code, _ := HammingCode(sector)

	for bit := 0; bit < 24; bit++ {
		syn, _ := HammingSyndrome(sector, code^1<<bit)
		got := DecodeHamming(syn)
		if got.Class != EccCorrectableInCode {
			t.Errorf("code bit %d: class = %v, want %v", bit, got.Class, EccCorrectableInCode)
		}
		if got.Err() != nil {
			t.Errorf("code bit %d: Err() = %v, want nil", bit, got.Err())
		}
	}
}

func TestDecodeHamming_DoubleBit(t *testing.T) {
	sector := randomSector(4)
	code, _ := HammingCode(sector)

	tests := []struct {
		name string
		a, b BitLocation
	}{
		{"same byte", BitLocation{10, 0}, BitLocation{10, 7}},
		{"same bit", BitLocation{0, 3}, BitLocation{511, 3}},
		{"unrelated", BitLocation{123, 5}, BitLocation{456, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte(nil), sector...)
			buf[tt.a.Byte] ^= 1 << tt.a.Bit
			buf[tt.b.Byte] ^= 1 << tt.b.Bit
			syn, _ := HammingSyndrome(buf, code)
			got := DecodeHamming(syn)
			if got.Class != EccUncorrectable {
				t.Errorf("class = %v, want %v", got.Class, EccUncorrectable)
			}
			if !errors.Is(got.Err(), ErrUncorrectable) {
				t.Errorf("Err() = %v, want ErrUncorrectable", got.Err())
			}
		})
	}
}

func TestHammingCode_StoreLoad(t *testing.T) {
	var buf [HammingBytes]byte
	PutHammingCode(buf[:], 0xa5c3e1)
	if buf != [HammingBytes]byte{0xe1, 0xc3, 0xa5} {
		t.Errorf("PutHammingCode() = % x", buf)
	}
	if got := LoadHammingCode(buf[:]); got != 0xa5c3e1 {
		t.Errorf("LoadHammingCode() = %#x, want 0xa5c3e1", got)
	}
}

func TestCorrect(t *testing.T) {
	sector := randomSector(5)
	orig := append([]byte(nil), sector...)
	loc := BitLocation{Byte: 300, Bit: 6}
	sector[loc.Byte] ^= 1 << loc.Bit

	if err := Correct(sector, loc); err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if sector[loc.Byte] != orig[loc.Byte] {
		t.Errorf("byte %d = %#02x, want %#02x", loc.Byte, sector[loc.Byte], orig[loc.Byte])
	}
	if err := Correct(sector, BitLocation{Byte: SectorSize}); !errors.Is(err, ErrLocation) {
		t.Errorf("Correct(out of range) error = %v, want ErrLocation", err)
	}
}

func TestEcc1Class_String(t *testing.T) {
	tests := []struct {
		class Ecc1Class
		want  string
	}{
		{EccNoError, "no error"},
		{EccCorrectable, "correctable"},
		{EccCorrectableInCode, "correctable in code"},
		{EccUncorrectable, "uncorrectable"},
		{Ecc1Class(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("Ecc1Class(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}
