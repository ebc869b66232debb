// Package twofish provides a from-scratch implementation of the Twofish block cipher.
//
// Twofish is a 128-bit-block, 16-round Feistel cipher with key-dependent
// S-boxes and an MDS diffusion matrix over GF(2^8). The implementation
// follows the cipher's defining paper; the round function is table-driven
// with fixed-latency lookups and a branchless GF(2^8) multiplier.
package twofish

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// BlockSize is the size, in bytes, of a Twofish block.
const BlockSize = 16

// KeySize is the size, in bytes, of the 256-bit keys used by the channel
// protocol. NewCipher also accepts 128- and 192-bit keys.
const KeySize = 32

// KeySizeError is returned when a key is not 16, 24, or 32 bytes long.
type KeySizeError int

func (k KeySizeError) Error() string {
	return fmt.Sprintf("twofish: invalid key size %d", int(k))
}

// A Cipher holds an expanded Twofish key schedule: 40 round subkeys and the
// four key-dependent S-boxes, each precomposed with its MDS matrix column.
// It implements cipher.Block.
type Cipher struct {
	s [4][256]uint32
	k [40]uint32
}

var _ cipher.Block = (*Cipher)(nil)

// NewCipher expands the given key and returns a Cipher. The key must be 16,
// 24, or 32 bytes long.
func NewCipher(key []byte) (*Cipher, error) {
	if l := len(key); l != 16 && l != 24 && l != 32 {
		return nil, KeySizeError(l)
	}
	c := new(Cipher)
	k := len(key) / 8

	// Derive the S-box keys: each 64-bit chunk of the key is multiplied by
	// the RS matrix over GF(2^8)/0x14d, yielding one 32-bit word per chunk.
	var sk [16]byte
	for i := 0; i < k; i++ {
		for j, row := range rs {
			for l, v := range row {
				sk[4*i+j] ^= gfMul(key[8*i+l], v, rsPolynomial)
			}
		}
	}

	// Derive the 40 round subkeys with the pseudo-Hadamard transform over
	// the h function applied to the even and odd key words.
	var tmp [4]byte
	for i := byte(0); i < 20; i++ {
		for j := range tmp {
			tmp[j] = 2 * i
		}
		a := h(tmp[:], key, 0)
		for j := range tmp {
			tmp[j] = 2*i + 1
		}
		b := bits.RotateLeft32(h(tmp[:], key, 1), 8)
		c.k[2*i] = a + b
		c.k[2*i+1] = bits.RotateLeft32(a+2*b, 9)
	}

	// Build the key-dependent S-boxes, folding in the MDS column multiply so
	// the round function is four lookups and three XORs per word.
	switch k {
	case 2:
		for i := 0; i < 256; i++ {
			x := byte(i)
			c.s[0][i] = mdsColumn(q1[q0[q0[x]^sk[0]]^sk[4]], 0)
			c.s[1][i] = mdsColumn(q0[q0[q1[x]^sk[1]]^sk[5]], 1)
			c.s[2][i] = mdsColumn(q1[q1[q0[x]^sk[2]]^sk[6]], 2)
			c.s[3][i] = mdsColumn(q0[q1[q1[x]^sk[3]]^sk[7]], 3)
		}
	case 3:
		for i := 0; i < 256; i++ {
			x := byte(i)
			c.s[0][i] = mdsColumn(q1[q0[q0[q1[x]^sk[0]]^sk[4]]^sk[8]], 0)
			c.s[1][i] = mdsColumn(q0[q0[q1[q1[x]^sk[1]]^sk[5]]^sk[9]], 1)
			c.s[2][i] = mdsColumn(q1[q1[q0[q0[x]^sk[2]]^sk[6]]^sk[10]], 2)
			c.s[3][i] = mdsColumn(q0[q1[q1[q0[x]^sk[3]]^sk[7]]^sk[11]], 3)
		}
	case 4:
		for i := 0; i < 256; i++ {
			x := byte(i)
			c.s[0][i] = mdsColumn(q1[q0[q0[q1[q1[x]^sk[0]]^sk[4]]^sk[8]]^sk[12]], 0)
			c.s[1][i] = mdsColumn(q0[q0[q1[q1[q0[x]^sk[1]]^sk[5]]^sk[9]]^sk[13]], 1)
			c.s[2][i] = mdsColumn(q1[q1[q0[q0[q0[x]^sk[2]]^sk[6]]^sk[10]]^sk[14]], 2)
			c.s[3][i] = mdsColumn(q0[q1[q1[q0[q1[x]^sk[3]]^sk[7]]^sk[11]]^sk[15]], 3)
		}
	}

	return c, nil
}

// BlockSize returns the Twofish block size, 16 bytes.
func (c *Cipher) BlockSize() int {
	return BlockSize
}

// Wipe destroys the expanded key schedule. The round subkeys and the
// key-dependent S-boxes are equivalent to the key itself, so a session that
// wipes its keys must wipe the schedule too. The Cipher must not be used
// afterwards.
func (c *Cipher) Wipe() {
	for i := range c.s {
		clear(c.s[i][:])
	}
	clear(c.k[:])
}

// Encrypt encrypts the 16-byte block in src and writes the result to dst.
// Dst and src may overlap entirely or not at all.
func (c *Cipher) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}

	a := binary.LittleEndian.Uint32(src[0:4]) ^ c.k[0]
	b := binary.LittleEndian.Uint32(src[4:8]) ^ c.k[1]
	x := binary.LittleEndian.Uint32(src[8:12]) ^ c.k[2]
	y := binary.LittleEndian.Uint32(src[12:16]) ^ c.k[3]

	for i := 0; i < 8; i++ {
		k := c.k[8+i*4 : 12+i*4]

		t0 := c.s[0][byte(a)] ^ c.s[1][byte(a>>8)] ^ c.s[2][byte(a>>16)] ^ c.s[3][byte(a>>24)]
		t1 := c.s[1][byte(b)] ^ c.s[2][byte(b>>8)] ^ c.s[3][byte(b>>16)] ^ c.s[0][byte(b>>24)]
		x = bits.RotateLeft32(x^(t0+t1+k[0]), -1)
		y = bits.RotateLeft32(y, 1) ^ (t0 + 2*t1 + k[1])

		t0 = c.s[0][byte(x)] ^ c.s[1][byte(x>>8)] ^ c.s[2][byte(x>>16)] ^ c.s[3][byte(x>>24)]
		t1 = c.s[1][byte(y)] ^ c.s[2][byte(y>>8)] ^ c.s[3][byte(y>>16)] ^ c.s[0][byte(y>>24)]
		a = bits.RotateLeft32(a^(t0+t1+k[2]), -1)
		b = bits.RotateLeft32(b, 1) ^ (t0 + 2*t1 + k[3])
	}

	// Undo the last swap and whiten the output.
	binary.LittleEndian.PutUint32(dst[0:4], x^c.k[4])
	binary.LittleEndian.PutUint32(dst[4:8], y^c.k[5])
	binary.LittleEndian.PutUint32(dst[8:12], a^c.k[6])
	binary.LittleEndian.PutUint32(dst[12:16], b^c.k[7])
}

// Decrypt decrypts the 16-byte block in src and writes the result to dst.
// Dst and src may overlap entirely or not at all.
func (c *Cipher) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("twofish: input not full block")
	}
	if len(dst) < BlockSize {
		panic("twofish: output not full block")
	}

	x := binary.LittleEndian.Uint32(src[0:4]) ^ c.k[4]
	y := binary.LittleEndian.Uint32(src[4:8]) ^ c.k[5]
	a := binary.LittleEndian.Uint32(src[8:12]) ^ c.k[6]
	b := binary.LittleEndian.Uint32(src[12:16]) ^ c.k[7]

	for i := 8; i > 0; i-- {
		k := c.k[4+i*4 : 8+i*4]

		t0 := c.s[0][byte(x)] ^ c.s[1][byte(x>>8)] ^ c.s[2][byte(x>>16)] ^ c.s[3][byte(x>>24)]
		t1 := c.s[1][byte(y)] ^ c.s[2][byte(y>>8)] ^ c.s[3][byte(y>>16)] ^ c.s[0][byte(y>>24)]
		a = bits.RotateLeft32(a, 1) ^ (t0 + t1 + k[2])
		b = bits.RotateLeft32(b^(t0+2*t1+k[3]), -1)

		t0 = c.s[0][byte(a)] ^ c.s[1][byte(a>>8)] ^ c.s[2][byte(a>>16)] ^ c.s[3][byte(a>>24)]
		t1 = c.s[1][byte(b)] ^ c.s[2][byte(b>>8)] ^ c.s[3][byte(b>>16)] ^ c.s[0][byte(b>>24)]
		x = bits.RotateLeft32(x, 1) ^ (t0 + t1 + k[0])
		y = bits.RotateLeft32(y^(t0+2*t1+k[1]), -1)
	}

	binary.LittleEndian.PutUint32(dst[0:4], a^c.k[0])
	binary.LittleEndian.PutUint32(dst[4:8], b^c.k[1])
	binary.LittleEndian.PutUint32(dst[8:12], x^c.k[2])
	binary.LittleEndian.PutUint32(dst[12:16], y^c.k[3])
}

const (
	mdsPolynomial = 0x169 // x^8 + x^6 + x^5 + x^3 + 1
	rsPolynomial  = 0x14d // x^8 + x^6 + x^3 + x^2 + 1
)

// gfMul returns a*b over GF(2^8)/p using a branchless shift-and-reduce
// multiplier: secret-dependent bits select table entries, never branches.
func gfMul(a, b byte, p uint32) byte {
	bb := [2]uint32{0, uint32(b)}
	pp := [2]uint32{0, p}

	var result uint32
	for i := 0; i < 7; i++ {
		result ^= bb[a&1]
		a >>= 1
		bb[1] = pp[bb[1]>>7] ^ (bb[1] << 1)
	}
	result ^= bb[a&1]
	return byte(result)
}

// mdsColumn computes the col'th column of the MDS matrix multiplied by a
// vector with in at position col, i.e. the contribution of one input byte to
// the 32-bit output word.
func mdsColumn(in byte, col int) uint32 {
	mul01 := uint32(in)
	mul5B := uint32(gfMul(in, 0x5b, mdsPolynomial))
	mulEF := uint32(gfMul(in, 0xef, mdsPolynomial))

	switch col {
	case 0:
		return mul01 | mul5B<<8 | mulEF<<16 | mulEF<<24
	case 1:
		return mulEF | mulEF<<8 | mul5B<<16 | mul01<<24
	case 2:
		return mul5B | mulEF<<8 | mul01<<16 | mulEF<<24
	case 3:
		return mul5B | mul01<<8 | mulEF<<16 | mul5B<<24
	}
	panic("twofish: invalid MDS column")
}

// h implements the cipher's key-schedule function: the input word passes
// through k stages of fixed permutations XORed with key material, then
// through the MDS matrix.
func h(in, key []byte, offset int) uint32 {
	var y [4]byte
	copy(y[:], in[:4])

	switch len(key) / 8 {
	case 4:
		y[0] = q1[y[0]] ^ key[4*(6+offset)+0]
		y[1] = q0[y[1]] ^ key[4*(6+offset)+1]
		y[2] = q0[y[2]] ^ key[4*(6+offset)+2]
		y[3] = q1[y[3]] ^ key[4*(6+offset)+3]
		fallthrough
	case 3:
		y[0] = q1[y[0]] ^ key[4*(4+offset)+0]
		y[1] = q1[y[1]] ^ key[4*(4+offset)+1]
		y[2] = q0[y[2]] ^ key[4*(4+offset)+2]
		y[3] = q0[y[3]] ^ key[4*(4+offset)+3]
		fallthrough
	case 2:
		y[0] = q1[q0[q0[y[0]]^key[4*(2+offset)+0]]^key[4*(0+offset)+0]]
		y[1] = q0[q0[q1[y[1]]^key[4*(2+offset)+1]]^key[4*(0+offset)+1]]
		y[2] = q1[q1[q0[y[2]]^key[4*(2+offset)+2]]^key[4*(0+offset)+2]]
		y[3] = q0[q1[q1[y[3]]^key[4*(2+offset)+3]]^key[4*(0+offset)+3]]
	}

	var out uint32
	for i, b := range y {
		out ^= mdsColumn(b, i)
	}
	return out
}

// rs is the Reed-Solomon matrix used to derive the S-box keys from the
// cipher key.
var rs = [4][8]byte{ //nolint:gochecknoglobals // these are constants
	{0x01, 0xa4, 0x55, 0x87, 0x5a, 0x58, 0xdb, 0x9e},
	{0xa4, 0x56, 0x82, 0xf3, 0x1e, 0xc6, 0x68, 0xe5},
	{0x02, 0xa1, 0xfc, 0xc1, 0x47, 0xae, 0x3d, 0x19},
	{0xa4, 0x55, 0x87, 0x5a, 0x58, 0xdb, 0x9e, 0x03},
}

// q0 and q1 are the cipher's two fixed byte permutations.
var q0 = [256]byte{ //nolint:gochecknoglobals // these are constants
	0xa9, 0x67, 0xb3, 0xe8, 0x04, 0xfd, 0xa3, 0x76, 0x9a, 0x92, 0x80, 0x78, 0xe4, 0xdd, 0xd1, 0x38,
	0x0d, 0xc6, 0x35, 0x98, 0x18, 0xf7, 0xec, 0x6c, 0x43, 0x75, 0x37, 0x26, 0xfa, 0x13, 0x94, 0x48,
	0xf2, 0xd0, 0x8b, 0x30, 0x84, 0x54, 0xdf, 0x23, 0x19, 0x5b, 0x3d, 0x59, 0xf3, 0xae, 0xa2, 0x82,
	0x63, 0x01, 0x83, 0x2e, 0xd9, 0x51, 0x9b, 0x7c, 0xa6, 0xeb, 0xa5, 0xbe, 0x16, 0x0c, 0xe3, 0x61,
	0xc0, 0x8c, 0x3a, 0xf5, 0x73, 0x2c, 0x25, 0x0b, 0xbb, 0x4e, 0x89, 0x6b, 0x53, 0x6a, 0xb4, 0xf1,
	0xe1, 0xe6, 0xbd, 0x45, 0xe2, 0xf4, 0xb6, 0x66, 0xcc, 0x95, 0x03, 0x56, 0xd4, 0x1c, 0x1e, 0xd7,
	0xfb, 0xc3, 0x8e, 0xb5, 0xe9, 0xcf, 0xbf, 0xba, 0xea, 0x77, 0x39, 0xaf, 0x33, 0xc9, 0x62, 0x71,
	0x81, 0x79, 0x09, 0xad, 0x24, 0xcd, 0xf9, 0xd8, 0xe5, 0xc5, 0xb9, 0x4d, 0x44, 0x08, 0x86, 0xe7,
	0xa1, 0x1d, 0xaa, 0xed, 0x06, 0x70, 0xb2, 0xd2, 0x41, 0x7b, 0xa0, 0x11, 0x31, 0xc2, 0x27, 0x90,
	0x20, 0xf6, 0x60, 0xff, 0x96, 0x5c, 0xb1, 0xab, 0x9e, 0x9c, 0x52, 0x1b, 0x5f, 0x93, 0x0a, 0xef,
	0x91, 0x85, 0x49, 0xee, 0x2d, 0x4f, 0x8f, 0x3b, 0x47, 0x87, 0x6d, 0x46, 0xd6, 0x3e, 0x69, 0x64,
	0x2a, 0xce, 0xcb, 0x2f, 0xfc, 0x97, 0x05, 0x7a, 0xac, 0x7f, 0xd5, 0x1a, 0x4b, 0x0e, 0xa7, 0x5a,
	0x28, 0x14, 0x3f, 0x29, 0x88, 0x3c, 0x4c, 0x02, 0xb8, 0xda, 0xb0, 0x17, 0x55, 0x1f, 0x8a, 0x7d,
	0x57, 0xc7, 0x8d, 0x74, 0xb7, 0xc4, 0x9f, 0x72, 0x7e, 0x15, 0x22, 0x12, 0x58, 0x07, 0x99, 0x34,
	0x6e, 0x50, 0xde, 0x68, 0x65, 0xbc, 0xdb, 0xf8, 0xc8, 0xa8, 0x2b, 0x40, 0xdc, 0xfe, 0x32, 0xa4,
	0xca, 0x10, 0x21, 0xf0, 0xd3, 0x5d, 0x0f, 0x00, 0x6f, 0x9d, 0x36, 0x42, 0x4a, 0x5e, 0xc1, 0xe0,
}

var q1 = [256]byte{ //nolint:gochecknoglobals // these are constants
	0x75, 0xf3, 0xc6, 0xf4, 0xdb, 0x7b, 0xfb, 0xc8, 0x4a, 0xd3, 0xe6, 0x6b, 0x45, 0x7d, 0xe8, 0x4b,
	0xd6, 0x32, 0xd8, 0xfd, 0x37, 0x71, 0xf1, 0xe1, 0x30, 0x0f, 0xf8, 0x1b, 0x87, 0xfa, 0x06, 0x3f,
	0x5e, 0xba, 0xae, 0x5b, 0x8a, 0x00, 0xbc, 0x9d, 0x6d, 0xc1, 0xb1, 0x0e, 0x80, 0x5d, 0xd2, 0xd5,
	0xa0, 0x84, 0x07, 0x14, 0xb5, 0x90, 0x2c, 0xa3, 0xb2, 0x73, 0x4c, 0x54, 0x92, 0x74, 0x36, 0x51,
	0x38, 0xb0, 0xbd, 0x5a, 0xfc, 0x60, 0x62, 0x96, 0x6c, 0x42, 0xf7, 0x10, 0x7c, 0x28, 0x27, 0x8c,
	0x13, 0x95, 0x9c, 0xc7, 0x24, 0x46, 0x3b, 0x70, 0xca, 0xe3, 0x85, 0xcb, 0x11, 0xd0, 0x93, 0xb8,
	0xa6, 0x83, 0x20, 0xff, 0x9f, 0x77, 0xc3, 0xcc, 0x03, 0x6f, 0x08, 0xbf, 0x40, 0xe7, 0x2b, 0xe2,
	0x79, 0x0c, 0xaa, 0x82, 0x41, 0x3a, 0xea, 0xb9, 0xe4, 0x9a, 0xa4, 0x97, 0x7e, 0xda, 0x7a, 0x17,
	0x66, 0x94, 0xa1, 0x1d, 0x3d, 0xf0, 0xde, 0xb3, 0x0b, 0x72, 0xa7, 0x1c, 0xef, 0xd1, 0x53, 0x3e,
	0x8f, 0x33, 0x26, 0x5f, 0xec, 0x76, 0x2a, 0x49, 0x81, 0x88, 0xee, 0x21, 0xc4, 0x1a, 0xeb, 0xd9,
	0xc5, 0x39, 0x99, 0xcd, 0xad, 0x31, 0x8b, 0x01, 0x18, 0x23, 0xdd, 0x1f, 0x4e, 0x2d, 0xf9, 0x48,
	0x4f, 0xf2, 0x65, 0x8e, 0x78, 0x5c, 0x58, 0x19, 0x8d, 0xe5, 0x98, 0x57, 0x67, 0x7f, 0x05, 0x64,
	0xaf, 0x63, 0xb6, 0xfe, 0xf5, 0xb7, 0x3c, 0xa5, 0xce, 0xe9, 0x68, 0x44, 0xe0, 0x4d, 0x43, 0x69,
	0x29, 0x2e, 0xac, 0x15, 0x59, 0xa8, 0x0a, 0x9e, 0x6e, 0x47, 0xdf, 0x34, 0x35, 0x6a, 0xcf, 0xdc,
	0x22, 0xc9, 0xc0, 0x9b, 0x89, 0xd4, 0xed, 0xab, 0x12, 0xa2, 0x0d, 0x52, 0xbb, 0x02, 0x2f, 0xa9,
	0xd7, 0x61, 0x1e, 0xb4, 0x50, 0x04, 0xf6, 0xc2, 0x16, 0x25, 0x86, 0x56, 0x55, 0x09, 0xbe, 0x91,
}
