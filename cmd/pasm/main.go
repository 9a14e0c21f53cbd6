// Command pasm assembles Parallax Propeller P1 PASM source into a raw,
// SPIN-bootstrapped binary, or EEPROM image.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/dcornwell-tools/pasm/asm"
	"github.com/dcornwell-tools/pasm/image"
	"github.com/dcornwell-tools/pasm/internal/logging"
)

const version = "pasm 0.1"

// formatFlag is a flag.Value restricting --format to the three image
// formats the image package understands.
type formatFlag image.Format

func (f *formatFlag) String() string { return string(*f) }
func (f *formatFlag) Set(s string) error {
	switch image.Format(s) {
	case image.Raw, image.Binary, image.EEPROM:
		*f = formatFlag(s)
		return nil
	default:
		return errors.Errorf("unknown format %q (want raw, binary, or eeprom)", s)
	}
}

func main() {
	var (
		showVersion bool
		syntax      int
		format      = formatFlag(image.Binary)
		hexOut      bool
		hubOffset   int
		outName     string
		logFile     string
		debug       bool
	)

	flag.BoolVar(&showVersion, "v", false, "show the program version and exit")
	flag.BoolVar(&showVersion, "version", false, "show the program version and exit")
	flag.IntVar(&syntax, "s", 1, "syntax version of PASM code")
	flag.IntVar(&syntax, "syntax", 1, "syntax version of PASM code")
	flag.Var(&format, "f", "output format: binary, eeprom, or raw")
	flag.Var(&format, "format", "output format: binary, eeprom, or raw")
	flag.BoolVar(&hexOut, "x", false, "also save output as a hex text file")
	flag.BoolVar(&hexOut, "hex", false, "also save output as a hex text file")
	flag.IntVar(&hubOffset, "b", 1, "initial value for the @ symbol")
	flag.IntVar(&hubOffset, "hub_offset", 1, "initial value for the @ symbol")
	flag.StringVar(&outName, "o", "", "filename to save to (default: input filename with appropriate extension)")
	flag.StringVar(&outName, "output", "", "filename to save to (default: input filename with appropriate extension)")
	flag.StringVar(&logFile, "log", "", "mirror log records to this file in addition to stderr")
	flag.BoolVar(&debug, "debug", false, "echo informational log records to stderr as well as warnings/errors")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	var logMirror io.Writer
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pasm: %v\n", errors.Wrap(err, "open log file"))
			os.Exit(1)
		}
		defer f.Close()
		logMirror = f
	}
	log := logging.New(logMirror, slog.LevelInfo, debug)

	if syntax != 1 {
		log.Error("unsupported syntax version", "syntax", syntax)
		os.Exit(1)
	}

	srcName := flag.Arg(0)
	if srcName == "" {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(srcName)
	if err != nil {
		log.Error("open source", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	// Framed output formats always start hub addressing at 0x10; -b/--hub_offset
	// only applies to raw output (see asm.Assemble, image.Frame).
	effectiveHubOffset := uint32(hubOffset)
	if image.Format(format) != image.Raw {
		effectiveHubOffset = 0x10
	}

	log.Info("assembling", "file", srcName, "format", string(format))
	result, err := asm.Assemble(srcName, f, effectiveHubOffset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	data, err := image.Frame(result.Code, image.Format(format), effectiveHubOffset)
	if err != nil {
		log.Error("frame image", "error", err)
		os.Exit(1)
	}

	outFile := outName
	if outFile == "" {
		outFile = strings.TrimSuffix(srcName, filepath.Ext(srcName)) + "." + string(format)
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		log.Error("write output", "error", err)
		os.Exit(1)
	}
	log.Info("wrote image", "path", outFile, "bytes", len(data))

	if hexOut {
		if err := os.WriteFile(outFile+".hex", hexDump(data), 0644); err != nil {
			log.Error("write hex output", "error", err)
			os.Exit(1)
		}
		log.Info("wrote hex dump", "path", outFile+".hex")
	}
}
