package asm

import "strings"

// PendingInstr is a line queued by Pass 1 for encoding in Pass 2: a
// datatype pseudo-op or an instruction, together with the addresses and
// line number it was parsed at. Parameter expressions are evaluated lazily
// in Pass 2 because forward label references are common (a JMP to a label
// defined later in the file).
type PendingInstr struct {
	Cond       string
	Opcode     string
	Parameters string
	Line       int
	CogAddr    uint16
	HubAddr    uint32
}

func isSpaceByte(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// splitMax1 mimics Python's str.split(maxsplit=1): split on the first run
// of whitespace, stripping any leading whitespace, and return everything
// else (including trailing whitespace) as the second element.
func splitMax1(s string) []string {
	i, n := 0, len(s)
	for i < n && isSpaceByte(s[i]) {
		i++
	}
	if i >= n {
		return nil
	}
	start := i
	for i < n && !isSpaceByte(s[i]) {
		i++
	}
	first := s[start:i]
	for i < n && isSpaceByte(s[i]) {
		i++
	}
	if i >= n {
		return []string{first}
	}
	return []string{first, s[i:]}
}

// Pass1 tokenizes and classifies every source line: it resolves labels and
// ORG/FIT/RES directives immediately, and queues every instruction or
// datatype pseudo-op for Pass 2. Errors are recorded on st and do not stop
// assembly; Pass1 always processes every line.
func Pass1(source []string, st *State) []PendingInstr {
	var pending []PendingInstr

	for _, raw := range source {
		st.Line++

		line := raw
		if idx := strings.IndexByte(line, '\''); idx >= 0 {
			line = line[:idx]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = strings.ToUpper(line)

		if err := pass1Line(line, st, &pending); err != nil {
			st.AddError(err)
		}
	}

	return pending
}

func pass1Line(line string, st *State, pending *[]PendingInstr) error {
	parts := splitMax1(line)

	var label, directive, cond, opcode, parameters string

	if len(parts) > 0 && !ReservedWords[parts[0]] {
		label = parts[0]
		if len(parts) == 2 {
			parts = splitMax1(parts[1])
		} else {
			parts = nil
		}
	}

	if len(parts) > 0 && Directives[parts[0]] {
		directive = parts[0]
		if len(parts) == 2 {
			parameters = parts[1]
		}
		parts = nil
	}

	if len(parts) > 0 {
		if _, ok := Conditions[parts[0]]; ok {
			cond = parts[0]
			if len(parts) == 2 {
				parts = splitMax1(parts[1])
			} else {
				parts = nil
			}
		}
	}

	if len(parts) > 0 {
		if _, ok := Instructions[parts[0]]; ok {
			opcode = parts[0]
			if len(parts) == 2 {
				parameters = parts[1]
			}
			parts = nil
		}
	}

	if len(parts) > 0 && Datatypes[parts[0]] {
		opcode = parts[0]
		if len(parts) == 2 {
			parameters = parts[1]
		}
		parts = nil
	}

	if len(parts) > 0 {
		return errf(st.Line, "unrecognized text: %s", line)
	}

	if label != "" {
		if directive == "ORG" || directive == "FIT" {
			return errf(st.Line, "labels are not allowed for ORG or FIT")
		}
		if err := st.AddLabel(label); err != nil {
			return err
		}
	}

	if directive != "" {
		if err := pass1Directive(directive, parameters, st); err != nil {
			return err
		}
	}

	if opcode != "" {
		st.FixLabelAddresses()

		*pending = append(*pending, PendingInstr{
			Cond:       cond,
			Opcode:     opcode,
			Parameters: strings.TrimSpace(parameters),
			Line:       st.Line,
			CogAddr:    st.CogAddr,
			HubAddr:    st.HubAddr,
		})

		st.CogAddr++
		st.HubAddr++
	}

	if directive == "" && opcode == "" && label == "" {
		return errf(st.Line, "unrecognized text: %s", line)
	}

	return nil
}

func pass1Directive(directive, parameters string, st *State) error {
	switch directive {
	case "ORG":
		if parameters == "" {
			return st.ORG(0)
		}
		n, err := evalScalar(parameters, st)
		if err != nil {
			return err
		}
		return st.ORG(int(n))

	case "FIT":
		var fit bool
		var err error
		if parameters == "" {
			fit, err = st.FIT(0x1F0)
		} else {
			var n int32
			n, err = evalScalar(parameters, st)
			if err == nil {
				fit, err = st.FIT(int(n))
			}
		}
		if err != nil {
			return err
		}
		if !fit {
			return errf(st.Line, "It doesn't FIT!")
		}
		return nil

	case "RES":
		st.FixLabelAddresses()
		if parameters == "" {
			return st.RES(1)
		}
		n, err := evalScalar(parameters, st)
		if err != nil {
			return err
		}
		return st.RES(int(n))

	default:
		return errf(st.Line, "unrecognized directive")
	}
}

func evalScalar(expr string, st *State) (int32, error) {
	v, err := Evaluate(expr, st)
	if err != nil {
		return 0, err
	}
	return v.scalar(st)
}
