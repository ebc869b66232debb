// Package hmac provides an HMAC-SHA-256 message authentication code built on the digest package.
package hmac

import (
	"crypto/subtle"
	"hash"

	"sealink/digest"
)

// TagSize is the size, in bytes, of an HMAC-SHA-256 tag.
const TagSize = digest.Size

// Sum returns the HMAC-SHA-256 tag of message under key.
func Sum(key, message []byte) [TagSize]byte {
	h := New(key)
	_, _ = h.Write(message)
	var tag [TagSize]byte
	h.Sum(tag[:0])
	return tag
}

// Equal compares two tags in constant time, regardless of where a mismatch
// occurs. It returns false if the lengths differ.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// New returns a new hash.Hash computing the HMAC-SHA-256 of whatever is
// written to it under the given key. Keys longer than the hash block size are
// hashed first, per the HMAC construction.
func New(key []byte) hash.Hash {
	m := &mac{} //nolint:exhaustruct // initialized below
	if len(key) > digest.BlockSize {
		sum := digest.Sum(key)
		key = sum[:]
	}
	copy(m.ipad[:], key)
	copy(m.opad[:], key)
	for i := range m.ipad {
		m.ipad[i] ^= 0x36
		m.opad[i] ^= 0x5c
	}
	m.inner = digest.New()
	_, _ = m.inner.Write(m.ipad[:])
	return m
}

type mac struct {
	ipad  [digest.BlockSize]byte
	opad  [digest.BlockSize]byte
	inner hash.Hash
}

var _ hash.Hash = (*mac)(nil)

func (m *mac) Write(p []byte) (n int, err error) {
	return m.inner.Write(p)
}

func (m *mac) Sum(b []byte) []byte {
	innerSum := m.inner.Sum(nil)
	outer := digest.New()
	_, _ = outer.Write(m.opad[:])
	_, _ = outer.Write(innerSum)
	return outer.Sum(b)
}

func (m *mac) Reset() {
	m.inner.Reset()
	_, _ = m.inner.Write(m.ipad[:])
}

func (m *mac) Size() int {
	return TagSize
}

func (m *mac) BlockSize() int {
	return digest.BlockSize
}
