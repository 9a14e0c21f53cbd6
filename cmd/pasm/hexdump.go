package main

import "fmt"

// hexDump renders data as uppercase hex bytes, a space every 4 bytes and a
// newline every 16, matching pasm.py's hex output loop.
func hexDump(data []byte) []byte {
	var out []byte
	for i, b := range data {
		if i%4 == 0 {
			if i%16 == 0 {
				out = append(out, '\n')
			} else {
				out = append(out, ' ')
			}
		}
		out = append(out, []byte(fmt.Sprintf("%02X", b))...)
	}
	return out
}
