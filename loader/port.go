package loader

import (
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// SerialPort backs Port with a real serial device via go.bug.st/serial. It
// is the only Port implementation production code uses; tests drive Loader
// against an in-memory fake instead.
type SerialPort struct {
	port serial.Port
}

// OpenSerialPort opens name (e.g. "/dev/ttyUSB0" or "COM3") at the
// Propeller's fixed bootstrap baud rate of 115200, 8N1.
func OpenSerialPort(name string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: open %s", name)
	}
	return &SerialPort{port: p}, nil
}

func (s *SerialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialPort) SetDTR(on bool) error {
	return s.port.SetDTR(on)
}

func (s *SerialPort) SetReadTimeout(d time.Duration) error {
	return s.port.SetReadTimeout(d)
}

func (s *SerialPort) Flush() error {
	return s.port.ResetInputBuffer()
}

// Close releases the underlying serial device.
func (s *SerialPort) Close() error {
	return s.port.Close()
}
