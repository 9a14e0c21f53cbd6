package asm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Errors is the accumulated list of errors produced while assembling a
// source file. Assembly is never aborted early: every line is processed so
// that Errors reports as many problems as possible in one pass.
type Errors []error

func (e Errors) Error() string {
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Result is the output of a successful assembly: the emitted code as a
// little-endian byte stream (one 32-bit word per encoded line) and the
// final state, which callers may use to look up label addresses.
type Result struct {
	Code  []byte
	State *State
}

// Assemble reads PASM source from r, line by line, and assembles it. name
// is used only in the io.Scanner's error messages. hubOffset is the
// starting hub address and is used as given; Assemble does not know the
// output format, so callers producing framed output (see the image
// package) pass 0x10, where framed code starts.
func Assemble(name string, r io.Reader, hubOffset uint32) (*Result, error) {
	var source []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		source = append(source, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	st := NewState(hubOffset)
	pending := Pass1(source, st)
	words := Pass2(pending, st)

	if len(st.Errors) > 0 {
		return nil, Errors(st.Errors)
	}

	code := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[i*4:], w)
	}

	return &Result{Code: code, State: st}, nil
}
