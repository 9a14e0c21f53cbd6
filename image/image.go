// Package image frames assembled Propeller P1 code into a loadable image:
// either the raw code bytes, or a SPIN-bootstrapped image suitable for
// loading into RAM or programming into the boot EEPROM.
package image

import (
	"encoding/binary"
	"fmt"
)

// Format selects how Frame packages assembled code.
type Format string

const (
	// Raw returns the code bytes unmodified; the caller is responsible for
	// whatever transport-level framing it needs.
	Raw Format = "raw"
	// Binary wraps the code in a minimal SPIN stub so that it can be
	// loaded directly into cog/hub RAM and run.
	Binary Format = "binary"
	// EEPROM does everything Binary does and additionally pads the image
	// out to the full EEPROM size, ready to be programmed for a
	// power-on boot.
	EEPROM Format = "eeprom"
)

// EEPROMSize is the size, in bytes, of the Propeller's boot EEPROM.
const EEPROMSize = 32768

// pbase is the fixed hub address at which framed code is placed. It does
// not depend on the hub offset used during assembly of "raw" output: the
// SPIN stub always starts code at $0010.
const pbase = 0x0010

// clockFreq and clockMode are the defaults used by every framed image;
// nothing in this tool's scope lets the caller override them.
const (
	clockFreq = 80000000
	clockMode = 0x6F
)

// spinStub is the trailing SPIN bytecode stub appended after the code: a
// single "COGINIT" of the loaded code followed by an infinite loop. It is
// opaque to this package; only its length participates in the header
// layout.
var spinStub = []byte{0x35, 0x37, 0x03, 0x35, 0x2C, 0x00, 0x00, 0x00}

// eepromTrailer is appended, twice, immediately after a framed eeprom
// image's data before the zero padding: it is the Propeller boot ROM's
// "no debugger present" marker pair.
var eepromTrailer = []byte{0xFF, 0xFF, 0xF9, 0xFF}

// Frame packages code according to format. hubOffset is accepted for
// symmetry with the assembler's hub addressing but, matching the original
// tool, does not affect the framed byte layout: Binary and EEPROM images
// always start code at $0010, and Raw returns code unchanged.
func Frame(code []byte, format Format, hubOffset uint32) ([]byte, error) {
	_ = hubOffset

	switch format {
	case Raw, "":
		return code, nil
	case Binary, EEPROM:
		data := frameSpin(code)
		if format == EEPROM {
			return PadEEPROM(data)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("image: unknown format %q", format)
	}
}

func frameSpin(code []byte) []byte {
	pcurr := pbase + len(code)
	vbase := pcurr + len(spinStub)
	dbase := vbase + 0x08
	dcurr := dbase + 0x04

	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], clockFreq)
	header[4] = clockMode
	header[5] = 0 // checksum, patched below
	binary.LittleEndian.PutUint16(header[6:8], uint16(pbase))
	binary.LittleEndian.PutUint16(header[8:10], uint16(vbase))
	binary.LittleEndian.PutUint16(header[10:12], uint16(dbase))
	binary.LittleEndian.PutUint16(header[12:14], uint16(pcurr))
	binary.LittleEndian.PutUint16(header[14:16], uint16(dcurr))

	data := make([]byte, 0, len(header)+len(code)+len(spinStub))
	data = append(data, header...)
	data = append(data, code...)
	data = append(data, spinStub...)

	data[5] = checksumByte(data)
	return data
}

// checksumByte computes the single checksum byte the boot ROM verifies,
// given the image with the checksum byte zeroed: it is chosen so that the
// complete image, checksum byte included, sums (as unsigned bytes, modulo
// 256) to 0x14.
func checksumByte(data []byte) byte {
	var sum int
	for _, b := range data {
		sum += int(b)
	}
	sum = (sum + 0xEC) % 256
	return byte((256 - sum) % 256)
}

// PadEEPROM appends the boot ROM trailer and pads data with zeroes to
// exactly EEPROMSize bytes. It is exported so that the uploader can repad
// a RAM-framed (Binary) image before writing it to EEPROM, without
// duplicating this layout knowledge.
func PadEEPROM(data []byte) ([]byte, error) {
	out := make([]byte, 0, EEPROMSize)
	out = append(out, data...)
	out = append(out, eepromTrailer...)
	out = append(out, eepromTrailer...)

	if len(out) > EEPROMSize {
		return nil, fmt.Errorf("image: code too large for EEPROM: %d bytes over %d", len(out)-EEPROMSize, EEPROMSize)
	}
	pad := make([]byte, EEPROMSize-len(out))
	out = append(out, pad...)
	return out, nil
}
