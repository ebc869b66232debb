// Package cbc provides CBC-mode encryption with PKCS#7 padding over any block cipher.
package cbc

import (
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"io"

	"sealink/internal/mem"
)

// ErrPadding is returned when the padding of a decrypted message is
// inconsistent. Callers must treat it the same as an authentication failure.
var ErrPadding = errors.New("cbc: invalid padding")

// Encrypt pads plaintext to a whole number of blocks, generates a fresh
// random IV from rand, and CBC-encrypts. It returns the IV and the
// ciphertext; the ciphertext length is always a non-zero multiple of the
// block size.
func Encrypt(b cipher.Block, rand io.Reader, plaintext []byte) (iv, ciphertext []byte, err error) {
	bs := b.BlockSize()

	iv = make([]byte, bs)
	if _, err := io.ReadFull(rand, iv); err != nil {
		return nil, nil, err
	}

	ciphertext = pad(plaintext, bs)
	prev := iv
	for i := 0; i < len(ciphertext); i += bs {
		block := ciphertext[i : i+bs]
		mem.XOR(block, block, prev)
		b.Encrypt(block, block)
		prev = block
	}
	return iv, ciphertext, nil
}

// Decrypt CBC-decrypts ciphertext under the given IV and strips the padding.
// It returns ErrPadding if the ciphertext is empty, not block-aligned, or
// carries inconsistent padding. The padding check examines every candidate
// byte regardless of where the first mismatch occurs.
func Decrypt(b cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	bs := b.BlockSize()
	if len(iv) != bs || len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, ErrPadding
	}

	plaintext := make([]byte, len(ciphertext))
	prev := iv
	for i := 0; i < len(ciphertext); i += bs {
		block := plaintext[i : i+bs]
		b.Decrypt(block, ciphertext[i:i+bs])
		mem.XOR(block, block, prev)
		prev = ciphertext[i : i+bs]
	}
	return unpad(plaintext, bs)
}

// pad appends PKCS#7 padding: n bytes of value n, with 1 <= n <= blockSize.
func pad(plaintext []byte, blockSize int) []byte {
	n := blockSize - len(plaintext)%blockSize
	padded := make([]byte, len(plaintext)+n)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// unpad validates and strips PKCS#7 padding without early exits on the
// padding bytes themselves.
func unpad(padded []byte, blockSize int) ([]byte, error) {
	last := padded[len(padded)-1]
	n := int(last)

	// Scan the final block unconditionally; only bytes covered by the
	// claimed padding length contribute to the verdict.
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, blockSize)
	start := len(padded) - blockSize
	for i := 0; i < blockSize; i++ {
		covered := subtle.ConstantTimeLessOrEq(blockSize-i, n)
		match := subtle.ConstantTimeByteEq(padded[start+i], last)
		good &= subtle.ConstantTimeSelect(covered, match, 1)
	}
	if good != 1 {
		return nil, ErrPadding
	}
	return padded[:len(padded)-n], nil
}
