package asm_test

import (
	"fmt"
	"strings"

	"github.com/dcornwell-tools/pasm/asm"
)

// ExampleAssemble shows assembling a two-line program and inspecting the
// resulting little-endian code bytes.
func ExampleAssemble() {
	code := `
		MOV     0,#5
		NOP
	`

	res, err := asm.Assemble("example", strings.NewReader(code), 0x10)
	if err != nil {
		fmt.Println(err)
		return
	}

	for i := 0; i < len(res.Code); i += 4 {
		fmt.Printf("%02x %02x %02x %02x\n", res.Code[i], res.Code[i+1], res.Code[i+2], res.Code[i+3])
	}
	// Output:
	// a0 fc 00 05
	// 00 00 00 00
}
