package sealink

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"sealink/elgamal"
	"sealink/hmac"
	"sealink/twofish"
)

// Wire layout, all integers big-endian:
//
//	message frame:    sequence (8) | iv (16) | ciphertext length (4) | ciphertext | tag (32)
//	handshake frame:  public value length (4) | public value (big-endian integer)
//
// The MAC tag covers sequence || iv || ciphertext.

const (
	ivSize     = twofish.BlockSize
	headerSize = 8 + ivSize + 4
)

var cryptoRand = rand.Reader //nolint:gochecknoglobals // default rand source

type frame struct {
	seq        uint64
	iv         []byte
	ciphertext []byte
	tag        [hmac.TagSize]byte
}

// frameTag computes the authentication tag for a frame.
func frameTag(seq uint64, iv, ciphertext []byte, macKey *[32]byte) [hmac.TagSize]byte {
	h := hmac.New(macKey[:])
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	_, _ = h.Write(seqBuf[:])
	_, _ = h.Write(iv)
	_, _ = h.Write(ciphertext)

	var tag [hmac.TagSize]byte
	h.Sum(tag[:0])
	return tag
}

// appendFrame appends the encoded frame to dst and returns the result.
func appendFrame(dst []byte, seq uint64, iv, ciphertext []byte, macKey *[32]byte) []byte {
	tag := frameTag(seq, iv, ciphertext, macKey)

	dst = binary.BigEndian.AppendUint64(dst, seq)
	dst = append(dst, iv...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(ciphertext))) //nolint:gosec // bounded by MaxMessageSize
	dst = append(dst, ciphertext...)
	return append(dst, tag[:]...)
}

// readFrame reads and decodes one message frame. The announced ciphertext
// length is bounds-checked before any allocation; nothing here trusts the
// frame's contents beyond its framing.
func readFrame(r io.Reader) (*frame, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	fr := &frame{ //nolint:exhaustruct // filled in below
		seq: binary.BigEndian.Uint64(header[:8]),
		iv:  append([]byte(nil), header[8:8+ivSize]...),
	}

	n := binary.BigEndian.Uint32(header[8+ivSize:])
	if n == 0 || n > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	fr.ciphertext = make([]byte, n)
	if _, err := io.ReadFull(r, fr.ciphertext); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, fr.tag[:]); err != nil {
		return nil, err
	}
	return fr, nil
}

// writeHandshake writes one length-prefixed public value.
func writeHandshake(w io.Writer, public []byte) error {
	buf := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(public)), uint32(len(public))) //nolint:gosec // group elements are small
	buf = append(buf, public...)
	_, err := w.Write(buf)
	return err
}

// readHandshake reads one length-prefixed public value. The length is
// bounded by the group's element width; anything larger is a peer speaking
// a different group (or not speaking the protocol at all).
func readHandshake(r io.Reader, params *elgamal.Params) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(lenBuf[:])
	maxLen := uint32((params.P.BitLen() + 7) / 8) //nolint:gosec // bit lengths are small
	if n == 0 || n > maxLen {
		return nil, fmt.Errorf("%w: handshake public value length %d", ErrProtocol, n)
	}

	public := make([]byte, n)
	if _, err := io.ReadFull(r, public); err != nil {
		return nil, err
	}
	return public, nil
}

func newInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}
