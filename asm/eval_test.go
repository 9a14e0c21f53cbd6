package asm_test

import (
	"testing"

	"github.com/dcornwell-tools/pasm/asm"
)

func evalInt(t *testing.T, expr string) int32 {
	t.Helper()
	st := asm.NewState(0x10)
	v, err := asm.Evaluate(expr, st)
	if err != nil {
		t.Fatalf("Evaluate(%q): unexpected error: %v", expr, err)
	}
	if v.IsList {
		t.Fatalf("Evaluate(%q): got a list, want a scalar", expr)
	}
	return v.Int
}

func TestEvaluate_literals(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{"$FF", 0xFF},
		{"$ff", 0xFF},
		{"%1010", 0b1010},
		{"%%3210", 0b11100100}, // 3*64+2*16+1*4+0 = 228
		{"100", 100},
		{"1_000_000", 1000000},
	}
	for _, c := range cases {
		if got := evalInt(t, c.expr); got != c.want {
			t.Errorf("Evaluate(%q) = %d, want %d", c.expr, got, c.want)
		}
	}

	// A quoted character literal is a one-element list of character codes.
	v, err := asm.Evaluate("'A'", asm.NewState(0x10))
	if err != nil {
		t.Fatalf("Evaluate(\"'A'\"): unexpected error: %v", err)
	}
	if !v.IsList || len(v.List) != 1 || v.List[0] != 'A' {
		t.Errorf(`Evaluate("'A'") = %+v, want list ['A']`, v)
	}
}

func TestEvaluate_precedenceExample(t *testing.T) {
	// Shifts bind tighter than addition:
	// %%3210 + $10 << 2 == 228 + (16 << 2) == 228 + 64 == 292.
	if got := evalInt(t, "%%3210 + $10 << 2"); got != 292 {
		t.Errorf("%%%%3210 + $10 << 2 = %d, want 292", got)
	}
}

func TestEvaluate_arithmeticRoundTrip(t *testing.T) {
	a, b := int32(12345), int32(67890)
	sum := evalInt(t, "12345 + 67890")
	if sum != a+b {
		t.Fatalf("12345 + 67890 = %d, want %d", sum, a+b)
	}
	back := evalInt(t, "12345 + 67890 - 67890")
	if back != a {
		t.Fatalf("a + b - b = %d, want %d", back, a)
	}
}

func TestEvaluate_shiftEncode(t *testing.T) {
	for n := int32(0); n < 32; n++ {
		want := int32(1) << uint(n)
		if got := evalInt(t, "|<"+itoa(n)); got != want {
			t.Errorf("|<%d = %d, want %d", n, got, want)
		}
	}
}

func TestEvaluate_bitwiseEncode(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{">|0", 0},
		{">|1", 1},
		{">|2", 2},
		{">|4", 3},  // 1<<2, want 2+1
		{">|8", 4},  // 1<<3, want 3+1
		{">|16", 5}, // 1<<4, want 4+1
	}
	for _, c := range cases {
		if got := evalInt(t, c.expr); got != c.want {
			t.Errorf("Evaluate(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvaluate_bitReverseInverse(t *testing.T) {
	v := int32(0x12345678)
	once := evalInt(t, "$12345678 >< 32")
	twice := evalInt(t, "($12345678 >< 32) >< 32")
	if twice != v {
		t.Errorf("bit-reverse twice over 32 bits = %#x, want %#x (once was %#x)", twice, v, once)
	}
}

func TestEvaluate_comparisons(t *testing.T) {
	cases := []struct {
		expr string
		want int32
	}{
		{"1 < 2", -1},
		{"2 < 1", 0},
		{"3 == 3", -1},
		{"3 <> 3", 0},
		{"3 =< 3", -1},
		{"4 => 3", -1},
		{"NOT 0", -1},
		{"NOT 5", 0},
	}
	for _, c := range cases {
		if got := evalInt(t, c.expr); got != c.want {
			t.Errorf("Evaluate(%q) = %d, want %d", c.expr, got, c.want)
		}
	}
}

func TestEvaluate_clamp(t *testing.T) {
	if got := evalInt(t, "5 #> 10"); got != 10 {
		t.Errorf("5 #> 10 = %d, want 10", got)
	}
	if got := evalInt(t, "5 <# 10"); got != 5 {
		t.Errorf("5 <# 10 = %d, want 5", got)
	}
}

func TestEvaluate_stringLiteralIsList(t *testing.T) {
	st := asm.NewState(0x10)
	v, err := asm.Evaluate(`"AB"`, st)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsList || len(v.List) != 2 || v.List[0] != 'A' || v.List[1] != 'B' {
		t.Errorf(`Evaluate("AB") = %+v, want list ['A','B']`, v)
	}
}

func TestEvaluate_unknownSymbol(t *testing.T) {
	st := asm.NewState(0x10)
	if _, err := asm.Evaluate("undefined_label", st); err == nil {
		t.Fatal("expected an error resolving an undefined symbol")
	}
}

func itoa(n int32) string {
	if n == 0 {
		return "0"
	}
	digits := [10]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
