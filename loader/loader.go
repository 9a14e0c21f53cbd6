// Package loader implements the Propeller P1 serial bootstrap protocol: the
// LFSR handshake used to detect and version a connected chip, and the
// pulse-encoded command/code download used to load a program into RAM or
// program it into the boot EEPROM.
package loader

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/dcornwell-tools/pasm/image"
)

// Port is the transport a Loader drives. It is deliberately small: byte
// read/write, DTR control for hardware reset, a configurable read
// deadline, and a flush. SerialPort backs it with a real serial device;
// tests back it with an in-memory fake.
type Port interface {
	io.ReadWriter
	SetDTR(on bool) error
	SetReadTimeout(d time.Duration) error
	Flush() error
}

// LoaderError reports a protocol-level failure: no hardware detected, a
// bad reply byte, a timeout, or a checksum mismatch. I/O failures from the
// transport itself are wrapped with github.com/pkg/errors instead.
type LoaderError string

func (e LoaderError) Error() string { return string(e) }

const (
	lfsrRequestLen = 250
	lfsrReplyLen   = 250
	lfsrSeed       = byte('P')

	cmdShutdown      = 0
	cmdLoadRAMRun    = 1
	cmdLoadEEPROM    = 2
	cmdLoadEEPROMRun = 3

	calibratePulse = 0xF9
)

// lfsr returns a function that yields successive bits of the 8-bit linear
// feedback shift register the Propeller boot ROM uses for its handshake,
// taps at bit positions 7, 5, 4 and 1, seeded with seed.
func lfsr(seed byte) func() byte {
	state := seed
	return func() byte {
		bit := state & 0x01
		state = ((state << 1) & 0xFE) | (((state >> 7) ^ (state >> 5) ^ (state >> 4) ^ (state >> 1)) & 1)
		return bit
	}
}

// encodeLong encodes a 32-bit value as the Propeller boot loader's pulse
// stream: ten 3-bit groups followed by one 2-bit group, each group
// represented by a single byte so that the duration of the low period
// between start bits carries the bit value (a "1" group holds the line
// low longer than a "0" group).
func encodeLong(value uint32) []byte {
	out := make([]byte, 0, 11)
	v := value
	for i := 0; i < 10; i++ {
		out = append(out, byte(0x92|(v&0x01)|((v&2)<<2)|((v&4)<<4)))
		v >>= 3
	}
	out = append(out, byte(0xF2|(v&0x01)|((v&2)<<2)))
	return out
}

// Loader drives the bootstrap protocol over a Port.
type Loader struct {
	port Port
}

// New returns a Loader driving port.
func New(port Port) *Loader {
	return &Loader{port: port}
}

// Version resets and connects to the Propeller, reads its firmware
// version, then sends the shutdown command and resets the chip again.
func (l *Loader) Version() (int, error) {
	if err := l.open(); err != nil {
		return 0, err
	}
	defer l.close()

	version, err := l.connect()
	if err != nil {
		return 0, err
	}
	if err := l.writeLong(cmdShutdown); err != nil {
		return 0, err
	}
	time.Sleep(10 * time.Millisecond)
	return version, l.reset()
}

// Upload connects to the Propeller and downloads code, either to RAM and
// runs it, or to the boot EEPROM (optionally running the RAM copy first).
// A RAM upload with run false sends only the shutdown command; no code is
// downloaded. progress, if non-nil, receives human readable status lines.
func (l *Loader) Upload(code []byte, eeprom, run bool, progress func(string)) error {
	if progress == nil {
		progress = func(string) {}
	}

	if len(code)%4 != 0 {
		return LoaderError("invalid code size: must be a multiple of 4")
	}

	if eeprom && len(code) < image.EEPROMSize {
		padded, err := PadEEPROM(code)
		if err != nil {
			return err
		}
		code = padded
	}

	var checksum int
	for _, b := range code {
		checksum += int(b)
	}
	if !eeprom {
		checksum += 2 * (0xFF + 0xFF + 0xF9 + 0xFF)
	}
	checksum &= 0xFF
	if checksum != 0 {
		return LoaderError(fmt.Sprintf("code checksum error: 0x%02x", checksum))
	}

	if err := l.open(); err != nil {
		return err
	}
	defer l.close()

	version, err := l.connect()
	if err != nil {
		return err
	}
	progress(fmt.Sprintf("Connected (version=%d)", version))

	return l.sendCode(code, eeprom, run, progress)
}

// PadEEPROM pads a RAM-framed image out to the full EEPROM layout: the
// boot ROM trailer followed by zero fill to image.EEPROMSize. Both the
// assembler CLI (framing at assembly time) and the uploader (repadding a
// RAM-only image before programming) share this single implementation.
func PadEEPROM(code []byte) ([]byte, error) {
	return image.PadEEPROM(code)
}

func (l *Loader) open() error {
	return nil
}

func (l *Loader) close() error {
	return nil
}

// reset pulses DTR to reset the Propeller's CPU and flushes any stale
// bytes left over from before the reset.
func (l *Loader) reset() error {
	if err := l.port.Flush(); err != nil {
		return errors.Wrap(err, "loader: flush before reset")
	}
	if err := l.port.SetDTR(true); err != nil {
		return errors.Wrap(err, "loader: assert DTR")
	}
	time.Sleep(25 * time.Millisecond)
	if err := l.port.SetDTR(false); err != nil {
		return errors.Wrap(err, "loader: clear DTR")
	}
	time.Sleep(90 * time.Millisecond)
	if err := l.port.Flush(); err != nil {
		return errors.Wrap(err, "loader: flush after reset")
	}
	return nil
}

func (l *Loader) calibrate() error {
	_, err := l.port.Write([]byte{calibratePulse})
	if err != nil {
		return errors.Wrap(err, "loader: calibrate")
	}
	return nil
}

// connect performs the LFSR handshake and returns the chip's firmware
// version.
func (l *Loader) connect() (int, error) {
	if err := l.reset(); err != nil {
		return 0, err
	}
	if err := l.calibrate(); err != nil {
		return 0, err
	}

	gen := lfsr(lfsrSeed)
	seq := make([]byte, lfsrRequestLen+lfsrReplyLen)
	for i := range seq {
		seq[i] = gen()
	}

	request := make([]byte, lfsrRequestLen)
	for i, b := range seq[:lfsrRequestLen] {
		request[i] = b | 0xFE
	}
	if _, err := l.port.Write(request); err != nil {
		return 0, errors.Wrap(err, "loader: write handshake request")
	}

	calibrate := make([]byte, lfsrReplyLen+8)
	for i := range calibrate {
		calibrate[i] = calibratePulse
	}
	if _, err := l.port.Write(calibrate); err != nil {
		return 0, errors.Wrap(err, "loader: write handshake calibration")
	}

	for i := lfsrRequestLen; i < lfsrRequestLen+lfsrReplyLen; i++ {
		bit, err := l.readBit(false, 100*time.Millisecond)
		if err != nil {
			return 0, err
		}
		if bit != seq[i] {
			return 0, LoaderError("no hardware found")
		}
	}

	var version int
	for i := 0; i < 8; i++ {
		bit, err := l.readBit(false, 50*time.Millisecond)
		if err != nil {
			return 0, err
		}
		version = ((version >> 1) & 0x7F) | (int(bit) << 7)
	}
	return version, nil
}

func (l *Loader) sendCode(code []byte, eeprom, run bool, progress func(string)) error {
	command := cmdShutdown
	switch {
	case eeprom && run:
		command = cmdLoadEEPROMRun
	case eeprom:
		command = cmdLoadEEPROM
	case run:
		command = cmdLoadRAMRun
	}

	if err := l.writeLong(uint32(command)); err != nil {
		return err
	}
	if !eeprom && !run {
		return nil
	}

	if err := l.writeLong(uint32(len(code) / 4)); err != nil {
		return err
	}
	progress(fmt.Sprintf("Sending code (%d bytes)", len(code)))

	for i := 0; i < len(code); i += 4 {
		word := uint32(code[i]) | uint32(code[i+1])<<8 | uint32(code[i+2])<<16 | uint32(code[i+3])<<24
		if err := l.writeLong(word); err != nil {
			return err
		}
	}

	bit, err := l.readBit(true, 8*time.Second)
	if err != nil {
		return err
	}
	if bit == 1 {
		return LoaderError("RAM checksum error")
	}

	if eeprom {
		progress("Programming EEPROM")
		bit, err := l.readBit(true, 5*time.Second)
		if err != nil {
			return err
		}
		if bit == 1 {
			return LoaderError("EEPROM programming error")
		}

		progress("Verifying EEPROM")
		bit, err = l.readBit(true, 2500*time.Millisecond)
		if err != nil {
			return err
		}
		if bit == 1 {
			return LoaderError("EEPROM verification error")
		}
	}

	return nil
}

func (l *Loader) writeLong(value uint32) error {
	_, err := l.port.Write(encodeLong(value))
	if err != nil {
		return errors.Wrap(err, "loader: write")
	}
	return nil
}

// readBit reads a single handshake/status bit. When echo is true, it keeps
// pulsing a calibration byte while it waits, as the EEPROM programming and
// verification phases require to keep the chip's read loop alive.
func (l *Loader) readBit(echo bool, timeout time.Duration) (byte, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1)

	if err := l.port.SetReadTimeout(25 * time.Millisecond); err != nil {
		return 0, errors.Wrap(err, "loader: set read timeout")
	}

	for time.Now().Before(deadline) {
		if echo {
			if _, err := l.port.Write([]byte{calibratePulse}); err != nil {
				return 0, errors.Wrap(err, "loader: echo pulse")
			}
			time.Sleep(25 * time.Millisecond)
		}
		n, err := l.port.Read(buf)
		if err != nil && err != io.EOF {
			return 0, errors.Wrap(err, "loader: read")
		}
		if n > 0 {
			switch buf[0] {
			case 0xFE, 0xFF:
				return buf[0] & 0x01, nil
			default:
				return 0, LoaderError("bad reply")
			}
		}
	}
	return 0, LoaderError("timeout error")
}
