// Package digest provides a from-scratch implementation of the SHA-256 message digest.
package digest

import (
	"encoding/binary"
	"hash"
	"math/bits"
)

const (
	// Size is the size, in bytes, of a SHA-256 digest.
	Size = 32
	// BlockSize is the size, in bytes, of a SHA-256 compression block.
	BlockSize = 64
)

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) [Size]byte {
	d := digest{}
	d.Reset()
	_, _ = d.Write(data)
	var out [Size]byte
	d.checkSum(&out)
	return out
}

// New returns a new hash.Hash computing the SHA-256 digest.
//
// The Merkle-Damgård length field limits input to 2^61 bytes.
func New() hash.Hash {
	d := &digest{} //nolint:exhaustruct // initialized via Reset
	d.Reset()
	return d
}

type digest struct {
	h   [8]uint32
	buf [BlockSize]byte
	n   int
	len uint64
}

var _ hash.Hash = (*digest)(nil)

func (d *digest) Reset() {
	d.h = [8]uint32{0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a, 0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19}
	d.n = 0
	d.len = 0
}

func (d *digest) Size() int {
	return Size
}

func (d *digest) BlockSize() int {
	return BlockSize
}

func (d *digest) Write(p []byte) (n int, err error) {
	n = len(p)
	d.len += uint64(n)
	if d.n > 0 {
		c := copy(d.buf[d.n:], p)
		d.n += c
		p = p[c:]
		if d.n == BlockSize {
			compress(&d.h, d.buf[:])
			d.n = 0
		}
	}
	for len(p) >= BlockSize {
		compress(&d.h, p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		d.n = copy(d.buf[:], p)
	}
	return n, nil
}

func (d *digest) Sum(b []byte) []byte {
	// Finalize a copy so the receiver can keep absorbing.
	dd := *d
	var out [Size]byte
	dd.checkSum(&out)
	return append(b, out[:]...)
}

func (d *digest) checkSum(out *[Size]byte) {
	bitLen := d.len << 3

	// Pad with 0x80, zeros, and the 64-bit big-endian message length, filling
	// out the final block (or two).
	var pad [BlockSize + 8]byte
	pad[0] = 0x80
	padLen := BlockSize - (d.n+8)%BlockSize
	if padLen == 0 {
		padLen = BlockSize
	}
	binary.BigEndian.PutUint64(pad[padLen:], bitLen)
	_, _ = d.Write(pad[:padLen+8])

	for i, h := range d.h {
		binary.BigEndian.PutUint32(out[i*4:], h)
	}
}

// k holds the SHA-256 round constants: the fractional parts of the cube roots
// of the first 64 primes.
var k = [64]uint32{ //nolint:gochecknoglobals // these are constants
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// compress runs the SHA-256 compression function over a single 64-byte block.
func compress(h *[8]uint32, block []byte) {
	var w [64]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(block[i*4 : i*4+4])
	}
	for i := 16; i < 64; i++ {
		s0 := bits.RotateLeft32(w[i-15], -7) ^ bits.RotateLeft32(w[i-15], -18) ^ (w[i-15] >> 3)
		s1 := bits.RotateLeft32(w[i-2], -17) ^ bits.RotateLeft32(w[i-2], -19) ^ (w[i-2] >> 10)
		w[i] = w[i-16] + s0 + w[i-7] + s1
	}

	a, b, c, d, e, f, g, hh := h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7]

	for i := 0; i < 64; i++ {
		s1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
		ch := (e & f) ^ (^e & g)
		t1 := hh + s1 + ch + k[i] + w[i]
		s0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
		maj := (a & b) ^ (a & c) ^ (b & c)
		t2 := s0 + maj

		hh = g
		g = f
		f = e
		e = d + t1
		d = c
		c = b
		b = a
		a = t1 + t2
	}

	h[0] += a
	h[1] += b
	h[2] += c
	h[3] += d
	h[4] += e
	h[5] += f
	h[6] += g
	h[7] += hh
}
