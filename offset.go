package ocb

import (
	"crypto/cipher"
	"crypto/subtle"
	"math/bits"
)

// offsets derives the per-block masks of one stream. Full blocks walk the
// table of L·x^i in Gray-code order; the terminal block is masked with
// L·x^-1, which never appears in that walk.
type offsets struct {
	blockLen int

	ls    [64][maxBlockSize]byte // ls[i] = L·x^i, L = E(0^n)
	lr    [maxBlockSize]byte     // L·x^-1
	cur   [maxBlockSize]byte     // offset of the last full block
	index uint64                 // 1-based index of the next block
}

// init seeds the offsets from the key schedule and the nonce.
// len(nonce) must equal the block size of b.
func (o *offsets) init(b cipher.Block, nonce []byte, poly byte) {
	n := b.BlockSize()
	o.blockLen = n

	var zero [maxBlockSize]byte
	b.Encrypt(o.ls[0][:n], zero[:n])

	for i := 1; i < len(o.ls); i++ {
		dbl(o.ls[i][:n], o.ls[i-1][:n], poly)
	}
	halve(o.lr[:n], o.ls[0][:n], poly)

	// R = E(N xor L)
	subtle.XORBytes(o.cur[:n], nonce, o.ls[0][:n])
	b.Encrypt(o.cur[:n], o.cur[:n])

	o.index = 1
}

// next advances to the offset of the next full block and returns it.
// The returned slice aliases internal state and is only valid until the
// following call.
func (o *offsets) next() []byte {
	n := o.blockLen
	l := &o.ls[bits.TrailingZeros64(o.index)]
	subtle.XORBytes(o.cur[:n], o.cur[:n], l[:n])
	o.index++
	return o.cur[:n]
}

// final writes into z the offset the next full block would have used, and
// into x that offset masked with the bit length of an nbytes-long terminal
// segment and with L·x^-1. The running sequence is not advanced.
func (o *offsets) final(z, x *[maxBlockSize]byte, nbytes int) {
	n := o.blockLen
	l := &o.ls[bits.TrailingZeros64(o.index)]
	subtle.XORBytes(z[:n], o.cur[:n], l[:n])

	copy(x[:n], z[:n])
	bitLen := nbytes * 8
	x[n-1] ^= byte(bitLen)
	x[n-2] ^= byte(bitLen >> 8)
	subtle.XORBytes(x[:n], x[:n], o.lr[:n])
}

func (o *offsets) wipe() {
	for i := range o.ls {
		clear(o.ls[i][:])
	}
	clear(o.lr[:])
	clear(o.cur[:])
	o.index = 0
}
