package twofish_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"

	reftwofish "golang.org/x/crypto/twofish"

	"sealink/twofish"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// Known-answer vectors from the Twofish paper, one per key size.
var knownAnswers = []struct {
	key string
	ct  string
}{
	{
		"00000000000000000000000000000000",
		"9f589f5cf6122c32b6bfec2f2ae8c35a",
	},
	{
		"0123456789abcdeffedcba98765432100011223344556677",
		"cfd1d2e5a9be9cdf501f13b892bd2248",
	},
	{
		"0123456789abcdeffedcba987654321000112233445566778899aabbccddeeff",
		"37527be0052334b89f0cfccae87cfa20",
	},
}

func TestEncrypt(t *testing.T) {
	for _, v := range knownAnswers {
		key := mustHex(t, v.key)
		c, err := twofish.NewCipher(key)
		if err != nil {
			t.Fatal(err)
		}

		var pt, ct [twofish.BlockSize]byte
		c.Encrypt(ct[:], pt[:])
		if got := hex.EncodeToString(ct[:]); got != v.ct {
			t.Errorf("key %s: Encrypt(0) = %s, want %s", v.key, got, v.ct)
		}
	}
}

func TestDecrypt(t *testing.T) {
	for _, v := range knownAnswers {
		key := mustHex(t, v.key)
		c, err := twofish.NewCipher(key)
		if err != nil {
			t.Fatal(err)
		}

		pt := make([]byte, twofish.BlockSize)
		c.Decrypt(pt, mustHex(t, v.ct))
		if !bytes.Equal(pt, make([]byte, twofish.BlockSize)) {
			t.Errorf("key %s: Decrypt(ct) = %x, want all zeros", v.key, pt)
		}
	}
}

func TestNewCipher_KeySize(t *testing.T) {
	for _, n := range []int{0, 8, 15, 17, 31, 33, 64} {
		if _, err := twofish.NewCipher(make([]byte, n)); err == nil {
			t.Errorf("NewCipher(%d bytes) succeeded, want KeySizeError", n)
		} else {
			var kse twofish.KeySizeError
			if !errors.As(err, &kse) {
				t.Errorf("NewCipher(%d bytes) = %v, want KeySizeError", n, err)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(0x7f15))
	key := make([]byte, twofish.KeySize)
	rng.Read(key)

	c, err := twofish.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	var pt, ct, out [twofish.BlockSize]byte
	for i := 0; i < 1000; i++ {
		rng.Read(pt[:])
		c.Encrypt(ct[:], pt[:])
		c.Decrypt(out[:], ct[:])
		if out != pt {
			t.Fatalf("Decrypt(Encrypt(%x)) = %x", pt, out)
		}
	}
}

// TestCompliance cross-checks the key schedule and both block transforms
// against the x/crypto implementation for every supported key size.
func TestCompliance(t *testing.T) {
	rng := rand.New(rand.NewSource(0x2f15)) //nolint:gosec // deterministic test data
	for _, keyLen := range []int{16, 24, 32} {
		for i := 0; i < 50; i++ {
			key := make([]byte, keyLen)
			rng.Read(key)

			c, err := twofish.NewCipher(key)
			if err != nil {
				t.Fatal(err)
			}
			ref, err := reftwofish.NewCipher(key)
			if err != nil {
				t.Fatal(err)
			}

			var pt, ct, refCT [twofish.BlockSize]byte
			rng.Read(pt[:])

			c.Encrypt(ct[:], pt[:])
			ref.Encrypt(refCT[:], pt[:])
			if ct != refCT {
				t.Fatalf("key len %d: Encrypt(%x) = %x, want %x", keyLen, pt, ct, refCT)
			}

			var out [twofish.BlockSize]byte
			c.Decrypt(out[:], ct[:])
			if out != pt {
				t.Fatalf("key len %d: Decrypt(%x) = %x, want %x", keyLen, ct, out, pt)
			}
		}
	}
}

func TestEncrypt_InPlace(t *testing.T) {
	key := make([]byte, twofish.KeySize)
	c, err := twofish.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}

	block := []byte("a sixteen byte b")
	want := make([]byte, twofish.BlockSize)
	c.Encrypt(want, block)

	c.Encrypt(block, block)
	if !bytes.Equal(block, want) {
		t.Errorf("in-place Encrypt = %x, want %x", block, want)
	}
}

func BenchmarkEncrypt(b *testing.B) {
	c, err := twofish.NewCipher(make([]byte, twofish.KeySize))
	if err != nil {
		b.Fatal(err)
	}
	var block [twofish.BlockSize]byte
	b.SetBytes(twofish.BlockSize)
	for i := 0; i < b.N; i++ {
		c.Encrypt(block[:], block[:])
	}
}

func BenchmarkNewCipher(b *testing.B) {
	key := make([]byte, twofish.KeySize)
	for i := 0; i < b.N; i++ {
		if _, err := twofish.NewCipher(key); err != nil {
			b.Fatal(err)
		}
	}
}
