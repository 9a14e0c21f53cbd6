package loader_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/dcornwell-tools/pasm/loader"
)

// fakeLFSR reproduces the same 8-bit LFSR the Propeller boot ROM runs, so
// the fake port can compute the handshake reply sequence a real chip would
// send back.
func fakeLFSR(seed byte) func() byte {
	state := seed
	return func() byte {
		bit := state & 0x01
		state = ((state << 1) & 0xFE) | (((state >> 7) ^ (state >> 5) ^ (state >> 4) ^ (state >> 1)) & 1)
		return bit
	}
}

// fakePort is an in-memory Port that plays the chip side of the bootstrap
// protocol: it answers the LFSR handshake, reports a fixed firmware
// version, and then reports success (or a configured failure) for each
// download phase.
type fakePort struct {
	version      byte
	ramFail      bool
	eepromFail   bool
	verifyFail   bool
	written      bytes.Buffer
	reply        []byte
	replyPos     int
	dtrAsserted  int
	readTimeout  time.Duration
}

func newFakePort(version byte) *fakePort {
	p := &fakePort{version: version}
	gen := fakeLFSR(byte('P'))
	for i := 0; i < 250; i++ {
		gen()
	}
	for i := 0; i < 250; i++ {
		bit := gen()
		if bit == 1 {
			p.reply = append(p.reply, 0xFF)
		} else {
			p.reply = append(p.reply, 0xFE)
		}
	}
	for i := 0; i < 8; i++ {
		bit := (version >> uint(i)) & 1
		if bit == 1 {
			p.reply = append(p.reply, 0xFF)
		} else {
			p.reply = append(p.reply, 0xFE)
		}
	}
	p.reply = append(p.reply, statusByte(p.ramFail))
	p.reply = append(p.reply, statusByte(p.eepromFail))
	p.reply = append(p.reply, statusByte(p.verifyFail))
	return p
}

func statusByte(fail bool) byte {
	if fail {
		return 0xFF
	}
	return 0xFE
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.replyPos >= len(p.reply) {
		return 0, nil
	}
	b[0] = p.reply[p.replyPos]
	p.replyPos++
	return 1, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written.Write(b)
	return len(b), nil
}

func (p *fakePort) SetDTR(on bool) error {
	if on {
		p.dtrAsserted++
	}
	return nil
}

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.readTimeout = d
	return nil
}

func (p *fakePort) Flush() error { return nil }

func TestLoader_Version(t *testing.T) {
	port := newFakePort(42)
	v, err := loader.New(port).Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("got version %d, want 42", v)
	}
	if port.dtrAsserted == 0 {
		t.Error("expected DTR to be asserted during reset")
	}
}

func TestLoader_UploadRAM(t *testing.T) {
	port := newFakePort(42)
	code := make([]byte, 1024)
	var checksum int
	for i := range code {
		code[i] = byte(i)
		checksum += int(code[i])
	}
	checksum += 2 * (0xFF + 0xFF + 0xF9 + 0xFF)
	adjust := byte(-checksum)
	code[0] += adjust

	var msgs []string
	err := loader.New(port).Upload(code, false, true, func(msg string) {
		msgs = append(msgs, msg)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) == 0 {
		t.Error("expected progress messages")
	}
}

func TestLoader_UploadBadSize(t *testing.T) {
	port := newFakePort(42)
	err := loader.New(port).Upload([]byte{1, 2, 3}, false, true, nil)
	if err == nil {
		t.Fatal("expected error for code size not a multiple of 4")
	}
}

func TestLoader_UploadChecksumError(t *testing.T) {
	port := newFakePort(42)
	code := make([]byte, 4)
	err := loader.New(port).Upload(code, false, true, nil)
	if err == nil {
		t.Fatal("expected checksum error for non-balancing code")
	}
}
