// Package asm implements a two-pass assembler for the Parallax Propeller P1's
// native instruction set (PASM).
//
// Supported source syntax, one statement per line:
//
//	[label] [directive|[condition] opcode] [parameters]  ['comment
//
// A leading token that is not a reserved word is a label. Labels beginning
// with ':' are local to the most recently defined non-local label. The ORG and
// FIT directives may not carry a label; a label on a RES line names the
// reserved slot. Instructions may be prefixed with a
// condition mnemonic (IF_Z, IF_NC, ...) and suffixed with effect mnemonics
// (WZ, WC, WR, NR).
//
// Expressions support the Propeller literal forms ($hex, %binary, %%quaternary,
// decimal, char/string literals) and the full PASM operator set; see Evaluate
// for the precedence table.
package asm

import "strings"

// Instruction describes one PASM mnemonic: its 32-bit bit template and which
// optional modifiers it accepts.
type Instruction struct {
	Template  string // 32 characters over {0,1,i,d,s,-}
	CanZ      bool   // may be suffixed with WZ
	CanC      bool   // may be suffixed with WC
	CanR      bool   // may be suffixed with WR/NR
	CanImm    bool   // s-field may be a literal #value
	CanCond   bool   // may carry a condition prefix
	Fixup     FixupFunc
}

// FixupFunc performs late, instruction-specific fix-up of the encoded bit
// template (a 32-character string over '0'/'1' and still-unresolved field
// placeholders) after the d/s fields and effects have been spliced in. Only
// CALL uses this: it borrows the d field to hold the cog address of the
// matching "<label>_RET" instruction.
type FixupFunc func(bits string, params string, st *State) (string, error)

// Condition mnemonics to their 4-bit encodings.
var Conditions = map[string]uint8{
	"IF_ALWAYS":     0xF,
	"IF_NEVER":      0x0,
	"IF_E":          0xA,
	"IF_NE":         0x5,
	"IF_A":          0x1,
	"IF_B":          0xC,
	"IF_AE":         0x3,
	"IF_BE":         0xE,
	"IF_C":          0xC,
	"IF_NC":         0x3,
	"IF_Z":          0xA,
	"IF_NZ":         0x5,
	"IF_C_EQ_Z":     0x9,
	"IF_C_NE_Z":     0x6,
	"IF_C_AND_Z":    0x8,
	"IF_C_AND_NZ":   0x4,
	"IF_NC_AND_Z":   0x2,
	"IF_NC_AND_NZ":  0x1,
	"IF_C_OR_Z":     0xE,
	"IF_C_OR_NZ":    0xD,
	"IF_NC_OR_Z":    0xB,
	"IF_NC_OR_NZ":   0x7,
	"IF_Z_EQ_C":     0x9,
	"IF_Z_NE_C":     0x6,
	"IF_Z_AND_C":    0x8,
	"IF_Z_AND_NC":   0x2,
	"IF_NZ_AND_C":   0x4,
	"IF_NZ_AND_NC":  0x1,
	"IF_Z_OR_C":     0xE,
	"IF_Z_OR_NC":    0xB,
	"IF_NZ_OR_C":    0xD,
	"IF_NZ_OR_NC":   0x7,
}

// Symbolic constants, as 32-bit signed values (interpreted modulo 2^32).
var Constants = map[string]int32{
	"TRUE":  -1,
	"FALSE": 0,
	"POSX":  2147483647,
	"NEGX":  -2147483648,
	"PI":    0x40490FDB,
}

// Hardware register names to their 9-bit cog addresses.
var Registers = map[string]uint16{
	"PAR":  0x1F0,
	"CNT":  0x1F1,
	"INA":  0x1F2,
	"INB":  0x1F3,
	"OUTA": 0x1F4,
	"OUTB": 0x1F5,
	"DIRA": 0x1F6,
	"DIRB": 0x1F7,
	"CTRA": 0x1F8,
	"CTRB": 0x1F9,
	"FRQA": 0x1FA,
	"FRQB": 0x1FB,
	"PHSA": 0x1FC,
	"PHSB": 0x1FD,
	"VCFG": 0x1FE,
	"VSCL": 0x1FF,
}

// Directives, effects and datatype pseudo-ops.
var (
	Directives = map[string]bool{"ORG": true, "FIT": true, "RES": true}
	Effects    = map[string]bool{"WZ": true, "WC": true, "WR": true, "NR": true}
	Datatypes  = map[string]bool{"BYTE": true, "WORD": true, "LONG": true}
)

func stripTemplate(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

// Instructions maps every PASM mnemonic to its encoding rules.
var Instructions map[string]Instruction

func def(name, template string, z, c, r, imm, cond bool, fixup FixupFunc) {
	t := stripTemplate(template)
	if len(t) != 32 {
		panic("asm: instruction template for " + name + " is not 32 bits wide: " + t)
	}
	Instructions[name] = Instruction{
		Template: t,
		CanZ:     z,
		CanC:     c,
		CanR:     r,
		CanImm:   imm,
		CanCond:  cond,
		Fixup:    fixup,
	}
}

func init() {
	Instructions = make(map[string]Instruction, 80)

	def("ABS", "101010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ABSNEG", "101011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ADD", "100000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ADDABS", "100010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ADDS", "110100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ADDSX", "110110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ADDX", "110010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("AND", "011000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ANDN", "011001 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("CALL", "010111 0011 1111 --------- sssssssss", true, false, true, true, true, fixCall)
	def("CLKSET", "000011 0001 1111 ddddddddd ------000", false, false, false, false, true, nil)
	def("CMP", "100001 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("CMPS", "110000 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("CMPSUB", "111000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("CMPSX", "110001 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("CMPX", "110011 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("COGID", "000011 0011 1111 ddddddddd ------001", true, true, true, false, true, nil)
	def("COGINIT", "000011 0001 1111 ddddddddd ------010", true, true, true, false, true, nil)
	def("COGSTOP", "000011 0001 1111 ddddddddd ------011", true, true, true, false, true, nil)
	def("DJNZ", "111001 001i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("HUBOP", "000011 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("JMP", "010111 000i 1111 --------- sssssssss", true, true, false, true, true, nil)
	def("JMPRET", "010111 001i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("LOCKCLR", "000011 0001 1111 ddddddddd ------111", true, true, true, false, true, nil)
	def("LOCKNEW", "000011 0011 1111 ddddddddd ------100", true, true, false, false, true, nil)
	def("LOCKRET", "000011 0001 1111 ddddddddd ------101", true, true, true, false, true, nil)
	def("LOCKSET", "000011 0001 1111 ddddddddd ------110", true, true, true, false, true, nil)
	def("MAX", "010011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MAXS", "010001 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MIN", "010010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MINS", "010000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MOV", "101000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MOVD", "010101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MOVI", "010110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MOVS", "010100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MUXC", "011100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MUXNC", "011101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MUXNZ", "011111 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("MUXZ", "011110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NEG", "101001 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NEGC", "101100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NEGNC", "101101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NEGNZ", "101111 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NEGZ", "101110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("NOP", "------ ---- 0000 --------- ---------", false, false, false, false, false, nil)
	def("OR", "011010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("RCL", "001101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("RCR", "001100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("RDBYTE", "000000 001i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("RDLONG", "000010 001i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("RDWORD", "000001 001i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("RET", "010111 0001 1111 --------- ---------", true, true, true, true, true, nil)
	def("REV", "001111 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ROL", "001001 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("ROR", "001000 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SAR", "001110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SHL", "001011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SHR", "001010 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUB", "100001 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUBABS", "100011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUBS", "110101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUBSX", "110111 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUBX", "110011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUMC", "100100 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUMNC", "100101 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUMNZ", "100111 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("SUMZ", "100110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("TEST", "011000 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("TESTN", "011001 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("TJNZ", "111010 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("TJZ", "111011 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("WAITCNT", "111110 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("WAITPEQ", "111100 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("WAITPNE", "111101 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("WAITVID", "111111 000i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)
	def("WRBYTE", "000000 000i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("WRLONG", "000010 000i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("WRWORD", "000001 000i 1111 ddddddddd sssssssss", true, true, false, true, true, nil)
	def("XOR", "011011 001i 1111 ddddddddd sssssssss", true, true, true, true, true, nil)

	ReservedWords = make(map[string]bool, 200)
	for name := range Directives {
		ReservedWords[name] = true
	}
	for name := range Effects {
		ReservedWords[name] = true
	}
	for name := range Datatypes {
		ReservedWords[name] = true
	}
	for name := range Instructions {
		ReservedWords[name] = true
	}
	for name := range Conditions {
		ReservedWords[name] = true
	}
	for name := range Constants {
		ReservedWords[name] = true
	}
	for name := range Registers {
		ReservedWords[name] = true
	}
}

// ReservedWords is the union of every name the language tables define; a
// label may not collide with any of them.
var ReservedWords map[string]bool
