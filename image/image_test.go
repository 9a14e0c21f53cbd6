package image_test

import (
	"testing"

	"github.com/dcornwell-tools/pasm/image"
)

func TestFrame_raw(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	out, err := image.Frame(code, image.Raw, 0x10)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != string(code) {
		t.Errorf("raw framing should return code unchanged: got % x", out)
	}
}

func TestFrame_binary(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	out, err := image.Frame(code, image.Binary, 0x10)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		0, 180, 196, 4, 111, 195, 16, 0, 28, 0, 36, 0, 20, 0, 40, 0,
		1, 2, 3, 4, 53, 55, 3, 53, 44, 0, 0, 0,
	}
	if string(out) != string(want) {
		t.Errorf("binary framing:\n got % x\nwant % x", out, want)
	}
}

func TestFrame_eeprom(t *testing.T) {
	code := []byte{1, 2, 3, 4}
	out, err := image.Frame(code, image.EEPROM, 0x10)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != image.EEPROMSize {
		t.Fatalf("eeprom image must be exactly %d bytes, got %d", image.EEPROMSize, len(out))
	}
	trailerStart := 28 // header(16) + code(4) + stub(8)
	wantTrailer := []byte{0xFF, 0xFF, 0xF9, 0xFF, 0xFF, 0xFF, 0xF9, 0xFF}
	if got := out[trailerStart : trailerStart+8]; string(got) != string(wantTrailer) {
		t.Errorf("eeprom trailer: got % x, want % x", got, wantTrailer)
	}
	for _, b := range out[trailerStart+8:] {
		if b != 0 {
			t.Fatalf("expected zero padding after trailer, found %#x", b)
		}
	}
}

func TestFrame_unknownFormat(t *testing.T) {
	_, err := image.Frame(nil, "bogus", 0x10)
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPadEEPROM_tooLarge(t *testing.T) {
	big := make([]byte, image.EEPROMSize)
	_, err := image.PadEEPROM(big)
	if err == nil {
		t.Fatal("expected error when data plus trailer exceeds EEPROM size")
	}
}

func TestPadEEPROM_exactFit(t *testing.T) {
	data := make([]byte, image.EEPROMSize-8)
	out, err := image.PadEEPROM(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != image.EEPROMSize {
		t.Fatalf("expected %d bytes, got %d", image.EEPROMSize, len(out))
	}
}
