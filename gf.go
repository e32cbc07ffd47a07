package ocb

// maxBlockSize is the widest block the mode supports. Scratch buffers are
// sized to it so that no operation allocates key-derived material on the heap.
const maxBlockSize = 16

// reduction returns the low byte of the field polynomial for a block of
// blockLen bytes. Only 64-bit and 128-bit blocks have a defined field.
func reduction(blockLen int) (byte, bool) {
	switch blockLen {
	case 8:
		// x^64 + x^4 + x^3 + x + 1
		return 0x1b, true
	case 16:
		// x^128 + x^7 + x^2 + x + 1
		return 0x87, true
	}
	return 0, false
}

// dbl performs the doubling operation in GF(2^n), n = 8*len(src).
// This is a left shift with conditional XOR of the reduction polynomial.
// dst and src may overlap exactly.
func dbl(dst, src []byte, poly byte) {
	n := len(src)

	carry := byte(0)
	for i := n - 1; i >= 0; i-- {
		b := src[i]
		dst[i] = (b << 1) | carry
		carry = b >> 7
	}

	mask := byte(0 - carry) // 0xFF if the top bit was set, 0x00 otherwise
	dst[n-1] ^= poly & mask
}

// halve is the inverse of dbl: it divides src by x in GF(2^n).
// dst and src may overlap exactly.
func halve(dst, src []byte, poly byte) {
	n := len(src)
	mask := byte(0 - (src[n-1] & 1))

	carry := byte(0)
	for i := 0; i < n; i++ {
		b := src[i]
		dst[i] = (b >> 1) | carry
		carry = b << 7
	}

	dst[0] ^= 0x80 & mask
	dst[n-1] ^= (poly >> 1) & mask
}
