// Package elgamal implements the channel's asymmetric key exchange: an
// ElGamal-style exchange over a prime-order subgroup of Z_p*, with the shared
// secret fed through SHA-256 to derive the session's symmetric keys.
//
// Arbitrary-precision arithmetic is deliberately not reimplemented; the
// package leans on math/big for modular exponentiation, uniform random
// generation, and primality testing.
package elgamal

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"sealink/digest"
	"sealink/internal/mem"
)

var (
	// ErrInvalidParams is returned when the group parameters are rejected:
	// p is not an accepted prime or g lies outside [2, p-2].
	ErrInvalidParams = errors.New("elgamal: invalid group parameters")

	// ErrDegenerateKey is returned when a public value is 0, 1, or p-1,
	// any of which would force a trivial shared secret.
	ErrDegenerateKey = errors.New("elgamal: degenerate public value")
)

// primalityReps is the number of Miller-Rabin rounds used to vet p.
const primalityReps = 64

// Params describes the public group both parties must share: a large prime
// modulus p and a generator g. Params carry no secrets and are assumed
// observable by an adversary.
type Params struct {
	P *big.Int
	G *big.Int
}

// Validate checks that p is a probable prime and that g lies in [2, p-2].
func (p *Params) Validate() error {
	if p.P == nil || p.G == nil || !p.P.ProbablyPrime(primalityReps) {
		return ErrInvalidParams
	}
	pMinus2 := new(big.Int).Sub(p.P, two)
	if p.G.Cmp(two) < 0 || p.G.Cmp(pMinus2) > 0 {
		return ErrInvalidParams
	}
	return nil
}

// size returns the length, in bytes, of the fixed-width serialization of a
// group element.
func (p *Params) size() int {
	return (p.P.BitLen() + 7) / 8
}

// A KeyPair holds one party's private exponent and the corresponding public
// value g^x mod p. The private exponent is never transmitted; call Wipe once
// the shared secret has been derived.
type KeyPair struct {
	X *big.Int // private exponent in [2, p-2]
	Y *big.Int // public value g^x mod p
}

// Wipe destroys the private exponent. Best effort: it zeroes the absorbed
// limbs before releasing them.
func (k *KeyPair) Wipe() {
	if k.X != nil {
		k.X.SetInt64(0)
		k.X = nil
	}
}

// GenerateKey generates a keypair under params, reading randomness from
// rand (crypto/rand.Reader if nil). The private exponent is uniform in
// [2, p-2]. In the astronomically unlikely event the derived public value is
// degenerate, it retries.
func GenerateKey(params *Params, random io.Reader) (*KeyPair, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if random == nil {
		random = rand.Reader
	}

	// x uniform in [2, p-2]: draw from [0, p-4] and shift.
	bound := new(big.Int).Sub(params.P, three)
	for {
		x, err := rand.Int(random, bound)
		if err != nil {
			return nil, err
		}
		x.Add(x, two)

		y := new(big.Int).Exp(params.G, x, params.P)
		if err := CheckPublicValue(params, y); err != nil {
			continue
		}
		return &KeyPair{X: x, Y: y}, nil
	}
}

// CheckPublicValue rejects the degenerate public values 0, 1, and p-1.
func CheckPublicValue(params *Params, y *big.Int) error {
	pMinus1 := new(big.Int).Sub(params.P, one)
	if y.Sign() <= 0 || y.Cmp(one) == 0 || y.Cmp(pMinus1) == 0 || y.Cmp(params.P) >= 0 {
		return ErrDegenerateKey
	}
	return nil
}

// SharedSecret computes (peer)^x mod p. Both parties arrive at the same
// value: (g^a)^b == (g^b)^a. The peer's public value is vetted first.
func SharedSecret(params *Params, own *KeyPair, peer *big.Int) (*big.Int, error) {
	if err := CheckPublicValue(params, peer); err != nil {
		return nil, err
	}
	return new(big.Int).Exp(peer, own.X, params.P), nil
}

// SessionKeys derives the channel's two symmetric keys from a shared secret.
// The raw group element is never used as a key: it is serialized to the
// group's fixed width and hashed, with a domain-separating suffix for the
// MAC key so neither key can stand in for the other.
func SessionKeys(params *Params, shared *big.Int) (encKey, macKey [digest.Size]byte) {
	buf := make([]byte, params.size())
	shared.FillBytes(buf)
	defer mem.Wipe(buf)

	encKey = digest.Sum(buf)

	h := digest.New()
	_, _ = h.Write(buf)
	_, _ = h.Write([]byte("mac"))
	h.Sum(macKey[:0])
	return encKey, macKey
}

var (
	one   = big.NewInt(1) //nolint:gochecknoglobals // these are constants
	two   = big.NewInt(2) //nolint:gochecknoglobals
	three = big.NewInt(3) //nolint:gochecknoglobals
)
