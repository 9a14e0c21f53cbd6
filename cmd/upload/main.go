// Command upload talks to a Parallax Propeller P1 over a serial connection:
// it can report the chip's bootloader version, or download a binary or
// EEPROM image to it.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/pkg/errors"

	"github.com/dcornwell-tools/pasm/internal/logging"
	"github.com/dcornwell-tools/pasm/loader"
)

const version = "upload 0.1"

// defaultSerialDevice mirrors upload.py's defSerial table: a guess at the
// serial device name for the current OS, used when -s/--serial is omitted.
func defaultSerialDevice() string {
	switch runtime.GOOS {
	case "windows":
		return "COM1"
	case "linux", "darwin", "freebsd", "openbsd", "netbsd":
		return "/dev/ttyUSB0"
	default:
		return "none"
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-v] <version|upload> [flags] [filename]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	showVersion := flag.Bool("v", false, "show the program version and exit")
	flag.BoolVar(showVersion, "version", false, "show the program version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	switch args[0] {
	case "version":
		os.Exit(runVersion(args[1:]))
	case "upload":
		os.Exit(runUpload(args[1:]))
	default:
		usage()
		os.Exit(1)
	}
}

// newLogger builds a slog.Logger mirroring records to logFile (if set),
// echoing Info+ to stderr when debug is set, Warn+ otherwise.
func newLogger(logFile string, debug bool) (*slog.Logger, func(), error) {
	var mirror io.Writer
	var file *os.File
	if logFile != "" {
		var err error
		file, err = os.Create(logFile)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open log file")
		}
		mirror = file
	}
	closer := func() {
		if file != nil {
			file.Close()
		}
	}
	return logging.New(mirror, slog.LevelInfo, debug), closer, nil
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ExitOnError)
	dev := fs.String("s", defaultSerialDevice(), "serial port device")
	fs.StringVar(dev, "serial", defaultSerialDevice(), "serial port device")
	logFile := fs.String("log", "", "mirror log records to this file in addition to stderr")
	debug := fs.Bool("debug", false, "echo informational log records to stderr as well as warnings/errors")
	fs.Parse(args)

	log, closeLog, err := newLogger(*logFile, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	log.Info("opening serial port", "device", *dev)
	port, err := loader.OpenSerialPort(*dev)
	if err != nil {
		log.Error("open serial port", "error", err)
		return 1
	}
	defer port.Close()

	v, err := loader.New(port).Version()
	if err != nil {
		log.Error("get version", "error", err)
		return 1
	}
	fmt.Println(v)
	return 0
}

func runUpload(args []string) int {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	dest := fs.String("d", "RAM", "upload destination: RAM or EEPROM")
	fs.StringVar(dest, "destination", "RAM", "upload destination: RAM or EEPROM")
	noRun := fs.Bool("n", false, "don't run the code after upload")
	fs.BoolVar(noRun, "no-run", false, "don't run the code after upload")
	dev := fs.String("s", defaultSerialDevice(), "serial port device")
	fs.StringVar(dev, "serial", defaultSerialDevice(), "serial port device")
	logFile := fs.String("log", "", "mirror log records to this file in addition to stderr")
	debug := fs.Bool("debug", false, "echo informational log records to stderr as well as warnings/errors")
	fs.Parse(args)

	log, closeLog, err := newLogger(*logFile, *debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()

	rest := fs.Args()
	if len(rest) == 0 {
		log.Error("missing filename")
		return 1
	}
	path := rest[0]

	code, err := os.ReadFile(path)
	if err != nil {
		log.Error("read file", "path", path, "error", err)
		return 1
	}

	eeprom := len(path) > len(".eeprom") && path[len(path)-len(".eeprom"):] == ".eeprom"
	if !eeprom {
		eeprom = *dest == "EEPROM" || *dest == "eeprom"
	}

	log.Info("opening serial port", "device", *dev)
	port, err := loader.OpenSerialPort(*dev)
	if err != nil {
		log.Error("open serial port", "error", err)
		return 1
	}
	defer port.Close()

	ld := loader.New(port)
	err = ld.Upload(code, eeprom, !*noRun, func(msg string) {
		log.Info(msg)
	})
	if err != nil {
		log.Error("upload", "error", err)
		return 1
	}
	log.Info("upload complete")
	fmt.Println("Done")
	return 0
}
