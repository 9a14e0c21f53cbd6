package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// effectTailRe matches a trailing WZ/WC/WR/NR effect mnemonic at the end of
// a parameter string, whether or not anything precedes it: the leading
// group is optional so that a bare effect (the whole parameter text, as in
// "RET WC") matches just as well as one following a comma or other field.
var effectTailRe = regexp.MustCompile(`^(?:.*[\s,])?(WZ|WC|WR|NR)\s*$`)

// Pass2 evaluates every pending instruction's parameters and encodes it to
// its final 32-bit little-endian word. Errors are recorded on st and do not
// stop assembly; a line that fails to encode is simply omitted from the
// output, matching the original tool's "report everything, then fail"
// behavior (see Assemble, which refuses to produce output if st.Errors is
// non-empty).
func Pass2(pending []PendingInstr, st *State) []uint32 {
	words := make([]uint32, 0, len(pending))
	for _, p := range pending {
		st.SetLine(p.Line)

		w, err := encodeOne(p, st)
		if err != nil {
			st.AddError(err)
			continue
		}
		words = append(words, w)
	}
	return words
}

func encodeOne(p PendingInstr, st *State) (uint32, error) {
	if Datatypes[p.Opcode] {
		return encodeDatatype(p, st)
	}
	return encodeInstruction(p, st)
}

func encodeDatatype(p PendingInstr, st *State) (uint32, error) {
	v, err := Evaluate(p.Parameters, st)
	if err != nil {
		return 0, err
	}

	var value uint32
	switch p.Opcode {
	case "BYTE":
		if v.IsList {
			value = packList(v.List, 8, 4)
		} else {
			value = wrapNegative(v.Int, 0x100)
		}
	case "WORD":
		if v.IsList {
			value = packList(v.List, 16, 2)
		} else {
			value = wrapNegative(v.Int, 0x10000)
		}
	default: // LONG
		n := v.Int
		if v.IsList {
			if len(v.List) == 0 {
				return 0, errf(st.Line, "LONG requires at least one value")
			}
			n = v.List[0]
		}
		value = wrapNegative(n, 0x100000000)
	}

	return byteSwapWord(value), nil
}

// wrapNegative adds modulus to value if it is negative, matching the
// original tool's handling of negative BYTE/WORD/LONG literals. Positive
// values that exceed the datatype's natural width are not masked: this
// mirrors the original, which only guards against negative values.
func wrapNegative(value int32, modulus int64) uint32 {
	v := int64(value)
	if v < 0 {
		v += modulus
	}
	return uint32(v)
}

// packList packs up to maxWords little-endian elements of the given bit
// width into a single 32-bit word, wrapping any negative element into its
// unsigned range first. Extra elements beyond maxWords are discarded.
func packList(elems []int32, width, maxWords int) uint32 {
	modulus := int64(1) << uint(width)
	var temp uint64
	shift := 0
	for i := 0; i < maxWords; i++ {
		var b int32
		if i < len(elems) {
			b = elems[i]
		}
		bb := int64(b)
		if bb < 0 {
			bb += modulus
		}
		temp |= (uint64(bb) & uint64(modulus-1)) << uint(shift)
		shift += width
	}
	return uint32(temp)
}

func encodeInstruction(p PendingInstr, st *State) (uint32, error) {
	rule, ok := Instructions[p.Opcode]
	if !ok {
		return 0, errf(st.Line, "unrecognized instruction: %s", p.Opcode)
	}

	bits := rule.Template

	if rule.CanCond && p.Cond != "" {
		code, ok := Conditions[p.Cond]
		if !ok {
			return 0, errf(st.Line, "unrecognized condition: %s", p.Cond)
		}
		bits = bits[:10] + fmt.Sprintf("%04b", code) + bits[14:]
	}

	params := p.Parameters
	if params != "" {
		var err error
		params, bits, err = applyEffects(params, bits, rule, st)
		if err != nil {
			return 0, err
		}

		if strings.TrimSpace(params) != "" {
			bits, err = spliceFields(params, bits, rule, st)
			if err != nil {
				return 0, err
			}
		}

		if rule.Fixup != nil {
			bits, err = rule.Fixup(bits, p.Parameters, st)
			if err != nil {
				return 0, err
			}
		}
	}

	bits = zeroNonBinary(bits)

	value, err := strconv.ParseUint(bits, 2, 32)
	if err != nil {
		return 0, errf(st.Line, "internal error encoding %s: %v", p.Opcode, err)
	}

	return byteSwapWord(uint32(value)), nil
}

// applyEffects strips and applies any trailing WZ/WC/WR/NR mnemonics from
// params, validating each against the instruction's actual CanZ/CanC/CanR
// flags (not the pending-tuple's unrelated fields, as the original tool's
// buggy checks effectively did).
func applyEffects(params, bits string, rule Instruction, st *State) (string, string, error) {
	wrNr := false
	for {
		m := effectTailRe.FindStringSubmatchIndex(params)
		if m == nil {
			break
		}
		effect := params[m[2]:m[3]]
		switch effect {
		case "WZ":
			if !rule.CanZ {
				return "", "", errf(st.Line, "WZ not allowed!")
			}
			bits = bits[:6] + "1" + bits[7:]
		case "WC":
			if !rule.CanC {
				return "", "", errf(st.Line, "WC not allowed!")
			}
			bits = bits[:7] + "1" + bits[8:]
		case "WR", "NR":
			if !rule.CanR {
				return "", "", errf(st.Line, "WR/NR not allowed!")
			}
			if wrNr {
				return "", "", errf(st.Line, "cannot use NR and WR at the same time")
			}
			if effect == "WR" {
				bits = bits[:8] + "1" + bits[9:]
			} else {
				bits = bits[:8] + "0" + bits[9:]
			}
			wrNr = true
		}
		// m[0] is always 0 under the anchored regex; m[2] marks where the
		// matched effect token actually begins, however much of params the
		// greedy leading group consumed.
		params = strings.TrimRight(params[:m[2]], " \t,")
	}
	return params, bits, nil
}

func spliceFields(params, bits string, rule Instruction, st *State) (string, error) {
	hasD := strings.ContainsRune(bits, 'd')
	hasS := strings.ContainsRune(bits, 's')

	var dExpr, sExpr string
	switch {
	case hasD && hasS:
		parts := strings.SplitN(params, ",", 2)
		if len(parts) != 2 {
			return "", errf(st.Line, "expected d,s parameters: %s", params)
		}
		dExpr, sExpr = parts[0], parts[1]
	case hasD:
		dExpr = params
	case hasS:
		sExpr = params
	default:
		return "", errf(st.Line, "unrecognized parameters: %s", params)
	}

	if hasD {
		d, err := evalField(strings.TrimSpace(dExpr), st)
		if err != nil {
			return "", err
		}
		start := strings.IndexByte(bits, 'd')
		stop := strings.LastIndexByte(bits, 'd')
		bits = bits[:start] + fmt.Sprintf("%09b", d) + bits[stop+1:]
	}

	if hasS {
		s := strings.TrimSpace(sExpr)
		immediate := strings.HasPrefix(s, "#")
		if immediate {
			if !rule.CanImm {
				return "", errf(st.Line, "source cannot have an immediate value")
			}
			bits = bits[:9] + "1" + bits[10:]
			s = s[1:]
		}
		v, err := evalField(s, st)
		if err != nil {
			return "", err
		}
		start := strings.IndexByte(bits, 's')
		stop := strings.LastIndexByte(bits, 's')
		bits = bits[:start] + fmt.Sprintf("%09b", v) + bits[stop+1:]
	}

	return bits, nil
}

// evalField evaluates a d- or s-field expression and checks it fits in the
// instruction's 9-bit field. The original tool only checked this for the
// s field and left d unchecked (and, for negative values, produced a
// corrupted field since Python's "{:0>9b}" embeds a sign character that the
// final non-binary-digit scrub then silently drops); both fields are
// checked here.
func evalField(expr string, st *State) (uint16, error) {
	v, err := Evaluate(expr, st)
	if err != nil {
		return 0, err
	}
	n, err := v.scalar(st)
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 0x1FF {
		return 0, errf(st.Line, "field expression evaluated out of range ($1FF): %d", n)
	}
	return uint16(n), nil
}

func zeroNonBinary(bits string) string {
	b := []byte(bits)
	for i, c := range b {
		if c != '0' && c != '1' {
			b[i] = '0'
		}
	}
	return string(b)
}

// byteSwapWord rearranges a 32-bit value assembled most-significant-byte
// first into the Propeller's little-endian word layout.
func byteSwapWord(v uint32) uint32 {
	b0 := v & 0xFF
	b1 := (v >> 8) & 0xFF
	b2 := (v >> 16) & 0xFF
	b3 := (v >> 24) & 0xFF
	return b0<<24 | b1<<16 | b2<<8 | b3
}

// fixCall implements the CALL instruction's late fix-up: the d field (left
// as a placeholder in CALL's template) is filled in with the cog address
// of the "<label>_RET" instruction matching the called label, so that the
// callee's RET can find its way back.
func fixCall(bits string, params string, st *State) (string, error) {
	params = strings.TrimSpace(params)
	if !strings.HasPrefix(params, "#") {
		return "", errf(st.Line, "cannot fix CALL: parameter is not an immediate label reference: %s", params)
	}
	label := params[1:]
	if strings.HasPrefix(label, ":") {
		label = st.CurrentLabel + label
	}

	target := -1
	for i := range st.Labels {
		if strings.EqualFold(st.Labels[i].Name, label) {
			target = i
			break
		}
	}
	if target == -1 {
		return "", errf(st.Line, "cannot fix CALL: label not found: %s", label)
	}

	retIdx := -1
	for i := range st.Labels {
		if st.Labels[i].RetOwner == target {
			retIdx = i
			break
		}
	}
	if retIdx == -1 {
		return "", errf(st.Line, "cannot fix CALL: no matching _RET label for: %s", label)
	}

	d := st.Labels[retIdx].CogAddr
	return bits[:14] + fmt.Sprintf("%09b", d) + bits[23:], nil
}
