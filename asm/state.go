package asm

import (
	"fmt"
	"regexp"
	"strings"
)

// AssemblerError is raised by expression evaluation, directive handling,
// effect validation, field overflow, unknown symbols and syntax
// classification. Pass 1 and Pass 2 each catch these per line and append
// them to the state's error list.
type AssemblerError struct {
	Line    int
	Message string
}

func (e *AssemblerError) Error() string {
	return fmt.Sprintf("%3d : %s", e.Line, e.Message)
}

func errf(line int, format string, args ...interface{}) *AssemblerError {
	return &AssemblerError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// AddressOutOfRangeError is raised by ORG and FIT when their argument falls
// outside the legal cog address range. The original tool lets this
// propagate as an uncaught exception, aborting the whole assembly; here it
// is reported like any other per-line error instead.
type AddressOutOfRangeError struct {
	Line      int
	Directive string
	Value     int
}

func (e *AddressOutOfRangeError) Error() string {
	return fmt.Sprintf("%3d : %s address out of range: %#x", e.Line, e.Directive, e.Value)
}

// labelRe matches valid label names: an optional leading ':' for local
// scoping, then an identifier starting with '_' or a letter.
var labelRe = regexp.MustCompile(`(?i)^:?[_A-Z][_A-Z0-9]*$`)

// Label records one defined symbol and its resolved addresses.
type Label struct {
	Name    string
	DefLine int
	CogAddr int // -1 until resolved
	HubAddr int // -1 until resolved
	RetOwner int // index into State.Labels of the label this "<name>_RET" completes, or -1
}

// State holds all mutable assembler bookkeeping: the current position,
// label table and accumulated errors. The language tables (Instructions,
// Conditions, ...) are immutable package-level data and are not part of
// State.
type State struct {
	Line         int
	CogAddr      uint16
	HubAddr      uint32
	CurrentLabel string
	Labels       []Label
	Errors       []error
}

// NewState creates a fresh assembler state. hubAddr is the initial hub
// address; callers pass 0x10 for framed output formats and the caller
// supplied hub offset for raw output (see image.Format).
func NewState(hubAddr uint32) *State {
	return &State{HubAddr: hubAddr, CogAddr: 0}
}

// ORG sets the cog address, defaulting to 0. Range: 0..=0x1FF.
func (s *State) ORG(addr int) error {
	if addr < 0 || addr > 0x1FF {
		return &AddressOutOfRangeError{Line: s.Line, Directive: "ORG", Value: addr}
	}
	s.CogAddr = uint16(addr)
	return nil
}

// FIT asserts CogAddr < addr, defaulting addr to 0x1F0.
func (s *State) FIT(addr int) (bool, error) {
	if addr < 0 || addr > 0x1F0 {
		return false, &AddressOutOfRangeError{Line: s.Line, Directive: "FIT", Value: addr}
	}
	return int(s.CogAddr) < addr, nil
}

// RES advances CogAddr by count, after the caller has run FixLabelAddresses.
func (s *State) RES(count int) error {
	if count < 1 || int(s.CogAddr)+count > 0x1FF {
		return errf(s.Line, "The value for RES is out of range.")
	}
	s.CogAddr += uint16(count)
	return nil
}

// SetLine restores the line number for a pending instruction consumed in
// Pass 2 and recomputes CurrentLabel: the most recent non-local label
// defined at or before this line, so that ':local' references resolve in
// the scope active at the point the instruction was parsed.
func (s *State) SetLine(line int) {
	s.Line = line
	s.CurrentLabel = ""
	for i := len(s.Labels) - 1; i >= 0; i-- {
		l := s.Labels[i]
		if l.DefLine <= line && !strings.Contains(l.Name, ":") {
			s.CurrentLabel = l.Name
			break
		}
	}
}

// AddLabel validates and registers a label definition at the state's
// current line. A leading ':' is resolved against CurrentLabel. Returns an
// error if the name is invalid, reserved, or already defined.
func (s *State) AddLabel(name string) error {
	if !labelRe.MatchString(name) {
		return errf(s.Line, "invalid label name: %s", name)
	}
	if ReservedWords[strings.ToUpper(name)] {
		return errf(s.Line, "reserved word cannot be used as a label: %s", name)
	}
	full := name
	nonLocal := !strings.HasPrefix(name, ":")
	if !nonLocal {
		full = s.CurrentLabel + name
	}
	for _, l := range s.Labels {
		if strings.EqualFold(l.Name, full) {
			return errf(s.Line, "label already defined: %s", full)
		}
	}
	retOwner := -1
	if nonLocal && strings.HasSuffix(strings.ToUpper(full), "_RET") {
		bare := full[:len(full)-len("_RET")]
		for i := len(s.Labels) - 1; i >= 0; i-- {
			if strings.EqualFold(s.Labels[i].Name, bare) {
				retOwner = i
				break
			}
		}
	}
	s.Labels = append(s.Labels, Label{
		Name:     full,
		DefLine:  s.Line,
		CogAddr:  -1,
		HubAddr:  -1,
		RetOwner: retOwner,
	})
	if nonLocal {
		s.CurrentLabel = full
	}
	return nil
}

// FixLabelAddresses assigns CogAddr/HubAddr to every trailing label whose
// addresses are still unresolved: a label refers to the address of the
// next emitted code.
func (s *State) FixLabelAddresses() {
	for i := len(s.Labels) - 1; i >= 0; i-- {
		if s.Labels[i].CogAddr != -1 {
			break
		}
		s.Labels[i].CogAddr = int(s.CogAddr)
		s.Labels[i].HubAddr = int(s.HubAddr)
	}
}

// ResolveLabel looks up a (possibly ':'-scoped) label name and returns its
// cog address, or its hub address if hub is true. ok is false if the label
// is undefined.
func (s *State) ResolveLabel(name string, hub bool) (int, bool) {
	if strings.HasPrefix(name, ":") {
		name = s.CurrentLabel + name
	}
	for i := len(s.Labels) - 1; i >= 0; i-- {
		if strings.EqualFold(s.Labels[i].Name, name) {
			if hub {
				return s.Labels[i].HubAddr, true
			}
			return s.Labels[i].CogAddr, true
		}
	}
	return 0, false
}

// AddError appends err to the accumulated error list.
func (s *State) AddError(err error) {
	s.Errors = append(s.Errors, err)
}
