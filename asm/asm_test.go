package asm_test

import (
	"strings"
	"testing"

	"github.com/dcornwell-tools/pasm/asm"
)

func assembleOK(t *testing.T, source string) []byte {
	t.Helper()
	res, err := asm.Assemble("test", strings.NewReader(source), 0x10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res.Code
}

func TestAssemble_nop(t *testing.T) {
	code := assembleOK(t, "NOP\n")
	want := []byte{0, 0, 0, 0}
	if string(code) != string(want) {
		t.Errorf("NOP: got % x, want % x", code, want)
	}
}

func TestAssemble_movImmediate(t *testing.T) {
	code := assembleOK(t, "MOV 0,#0\n")
	want := []byte{0xa0, 0xfc, 0x00, 0x00}
	if string(code) != string(want) {
		t.Errorf("MOV 0,#0: got % x, want % x", code, want)
	}
}

func TestAssemble_longLiteral(t *testing.T) {
	code := assembleOK(t, "LONG -1\n")
	want := []byte{0xff, 0xff, 0xff, 0xff}
	if string(code) != string(want) {
		t.Errorf("LONG -1: got % x, want % x", code, want)
	}
}

func TestAssemble_callRetPair(t *testing.T) {
	src := `
		start	CALL    #foo
			NOP
		foo		NOP
		foo_RET	RET
	`
	code := assembleOK(t, src)
	if len(code) != 16 {
		t.Fatalf("expected 4 encoded words (16 bytes), got %d bytes", len(code))
	}
}

func TestAssemble_retWithBareEffect(t *testing.T) {
	plain := assembleOK(t, "sub_RET\tRET\n")
	withWC := assembleOK(t, "sub_RET\tRET WC\n")

	if string(plain) == string(withWC) {
		t.Fatalf("RET WC: expected WC flag to change the encoded word, got identical % x", plain)
	}

	// WC is bit 7 of the big-endian bit string (bit 24 of the pre-swap
	// word), which byteSwapWord and LittleEndian.PutUint32 together land
	// in bit 0 of the first output byte.
	if withWC[0]&0x01 == 0 {
		t.Errorf("RET WC: expected WC bit set, got % x", withWC)
	}
}

func TestAssemble_retBareEffectRejectsUnknown(t *testing.T) {
	_, err := asm.Assemble("test", strings.NewReader("sub_RET\tRET XX\n"), 0x10)
	if err == nil {
		t.Fatal("expected error for unrecognized bare effect mnemonic")
	}
}

func TestAssemble_callWithoutRet(t *testing.T) {
	src := `
		start	CALL    #foo
		foo		NOP
	`
	_, err := asm.Assemble("test", strings.NewReader(src), 0x10)
	if err == nil {
		t.Fatal("expected error for CALL without matching _RET label")
	}
}

func TestAssemble_unknownInstruction(t *testing.T) {
	_, err := asm.Assemble("test", strings.NewReader("FROB 1,2\n"), 0x10)
	if err == nil {
		t.Fatal("expected error for unrecognized mnemonic")
	}
}

func TestAssemble_orgOutOfRange(t *testing.T) {
	_, err := asm.Assemble("test", strings.NewReader("ORG $200\nNOP\n"), 0x10)
	if err == nil {
		t.Fatal("expected error for ORG out of range")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("expected an 'out of range' error, got: %v", err)
	}
}

func TestAssemble_fitFailure(t *testing.T) {
	var b strings.Builder
	b.WriteString("ORG $1EE\n")
	for i := 0; i < 4; i++ {
		b.WriteString("NOP\n")
	}
	b.WriteString("FIT $1F0\n")
	_, err := asm.Assemble("test", strings.NewReader(b.String()), 0x10)
	if err == nil {
		t.Fatal("expected FIT failure")
	}
}

func TestAssemble_labelForwardReference(t *testing.T) {
	src := `
			JMP     #target
	target	NOP
	`
	code := assembleOK(t, src)
	if len(code) != 8 {
		t.Fatalf("expected 2 words, got %d bytes", len(code))
	}
}

func TestAssemble_localLabelScoping(t *testing.T) {
	src := `
	foo		NOP
	:loop	DJNZ    0,#:loop
	bar		NOP
	:loop	DJNZ    0,#:loop
	`
	if _, err := asm.Assemble("test", strings.NewReader(src), 0x10); err != nil {
		t.Fatalf("unexpected error reusing :loop under two scopes: %v", err)
	}
}

func TestAssemble_duplicateLabel(t *testing.T) {
	src := "foo NOP\nfoo NOP\n"
	_, err := asm.Assemble("test", strings.NewReader(src), 0x10)
	if err == nil {
		t.Fatal("expected error for duplicate label")
	}
}

func TestAssemble_accumulatesAllErrors(t *testing.T) {
	src := "FROB 1\nBLAH 2\n"
	_, err := asm.Assemble("test", strings.NewReader(src), 0x10)
	errs, ok := err.(asm.Errors)
	if !ok {
		t.Fatalf("expected asm.Errors, got %T", err)
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 accumulated errors, got %d", len(errs))
	}
}
