package asm

// This file collects notes on a few encoding conventions that are easy to
// get wrong when reading the instruction table and Pass 2 together.
//
// CALL / RET:
//
// CALL does not push a return address onto a stack; the Propeller has
// none. Instead, by convention, a subroutine entered with "CALL #foo" ends
// with a label "foo_RET" immediately before its RET instruction, and CALL
// patches its own d field (otherwise unused, since CALL has no destination
// operand) with foo_RET's cog address. RET then reads that cog address
// back out of its own instruction word. This means:
//
//	foo		CALL    #foo
//		...
//	foo_RET	RET
//
// must exist as a matching pair for CALL #foo to assemble; see fixCall.
//
// BYTE/WORD/LONG packing:
//
// A datatype pseudo-op occupies exactly one 32-bit word, however many
// values its expression evaluates to. A scalar expression becomes that
// word directly (only sign-adjusted into the datatype's unsigned range if
// negative; a positive value larger than the datatype's natural width is
// not masked). A list expression (built with the ',' operator, or from a
// string/char literal) is packed low byte/word first into the word, and
// is truncated if it has more elements than fit: 4 for BYTE, 2 for WORD.
// LONG ignores every element but the first. See packList.
