// Package sealink provides a confidential, authenticated message channel
// between two parties over an untrusted transport, built entirely from the
// self-implemented primitives in this module: an ElGamal-style key exchange
// (package elgamal) negotiates a shared secret once per session, and every
// subsequent message is Twofish-CBC encrypted (packages twofish and cbc) and
// HMAC-SHA-256 authenticated (packages digest and hmac).
//
// The transport is assumed reliable, ordered, and byte-oriented, with no
// confidentiality or integrity guarantees of its own; anything satisfying
// io.ReadWriter works. The initial public-value exchange is unauthenticated,
// so the channel does not defend against an active man-in-the-middle during
// the handshake.
//
// A Channel's send and receive halves lock independently: one goroutine may
// Send while another Receives, and Close may be called from either. Multiple
// concurrent senders (or receivers) are serialized.
package sealink

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"sealink/cbc"
	"sealink/elgamal"
	"sealink/hmac"
	"sealink/internal/mem"
	"sealink/twofish"
)

var (
	// ErrProtocol is the parent of every per-message protocol failure.
	// The session may continue after one at the caller's discretion, but
	// the offending message's plaintext is never returned.
	ErrProtocol = errors.New("sealink: protocol failure")

	// ErrSequence is returned when a frame's sequence number is not the
	// expected one, indicating replay, reordering, or loss.
	ErrSequence = fmt.Errorf("%w: unexpected sequence number", ErrProtocol)

	// ErrMACInvalid is returned when a frame's authentication tag does not
	// verify. The frame's ciphertext is never decrypted.
	ErrMACInvalid = fmt.Errorf("%w: message authentication failed", ErrProtocol)

	// ErrMessageTooLarge is returned when a frame announces a ciphertext
	// longer than MaxMessageSize, or a Send is attempted with a plaintext
	// that would exceed it.
	ErrMessageTooLarge = fmt.Errorf("%w: message too large", ErrProtocol)

	// ErrClosed is returned by Send and Receive after Close.
	ErrClosed = errors.New("sealink: channel closed")
)

// MaxMessageSize is the largest ciphertext, in bytes, the channel will send
// or accept in a single frame. It bounds the allocation a hostile length
// field can force before the frame is authenticated.
const MaxMessageSize = 1<<24 - 1

// Role distinguishes the two ends of a session. It decides only the order of
// handshake I/O; once established, the channel is symmetric.
type Role int

const (
	// Initiator opens the conversation: it writes its public value first,
	// then reads the peer's.
	Initiator Role = iota
	// Responder reads the peer's public value first, then writes its own.
	Responder
)

func (r Role) String() string {
	switch r {
	case Initiator:
		return "initiator"
	case Responder:
		return "responder"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// A Channel is an established secure session. It owns its keys and sequence
// counters exclusively; nothing is shared between instances.
type Channel struct {
	sendMu  sync.Mutex
	recvMu  sync.Mutex
	conn    io.ReadWriter
	block   *twofish.Cipher
	encKey  [32]byte
	macKey  [32]byte
	sendSeq uint64
	recvSeq uint64
	rand    io.Reader
	closed  bool
}

// A Config collects the optional knobs for Open. The zero value selects the
// default 2048-bit group and crypto/rand.
type Config struct {
	// Params is the ElGamal group. Defaults to elgamal.DefaultParams().
	Params *elgamal.Params
	// Rand is the source of key material and IVs. Defaults to
	// crypto/rand.Reader.
	Rand io.Reader
}

func (c *Config) params() *elgamal.Params {
	if c == nil || c.Params == nil {
		return elgamal.DefaultParams()
	}
	return c.Params
}

// Open performs the key exchange over conn in the given role and returns an
// established Channel. Exactly one public value is written and one is read;
// the initiator writes first and the responder reads first, so two blocking
// peers cannot deadlock. The private exponent and shared secret are
// destroyed before Open returns.
//
// Open returns elgamal.ErrInvalidParams for a bad group,
// elgamal.ErrDegenerateKey for a degenerate public value (local or peer's),
// and transport errors unchanged.
func Open(conn io.ReadWriter, role Role, config *Config) (*Channel, error) {
	params := config.params()
	random := cryptoRand
	if config != nil && config.Rand != nil {
		random = config.Rand
	}

	key, err := elgamal.GenerateKey(params, random)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	var peer []byte
	switch role {
	case Initiator:
		if err := writeHandshake(conn, key.Y.Bytes()); err != nil {
			return nil, err
		}
		if peer, err = readHandshake(conn, params); err != nil {
			return nil, err
		}
	case Responder:
		if peer, err = readHandshake(conn, params); err != nil {
			return nil, err
		}
		if err := writeHandshake(conn, key.Y.Bytes()); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("sealink: invalid role %d", int(role))
	}

	shared, err := elgamal.SharedSecret(params, key, newInt(peer))
	if err != nil {
		return nil, err
	}
	encKey, macKey := elgamal.SessionKeys(params, shared)
	shared.SetInt64(0)

	block, err := twofish.NewCipher(encKey[:])
	if err != nil {
		// The derived key is always twofish.KeySize bytes.
		return nil, err
	}

	return &Channel{ //nolint:exhaustruct // mutexes are zero-valued
		conn:    conn,
		block:   block,
		encKey:  encKey,
		macKey:  macKey,
		sendSeq: 0,
		recvSeq: 0,
		rand:    random,
		closed:  false,
	}, nil
}

// Send encrypts and authenticates plaintext and writes it to the transport
// as a single frame. The frame's sequence number is the count of messages
// sent so far, so the first message is numbered 0.
func (c *Channel) Send(plaintext []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if len(plaintext) > MaxMessageSize-twofish.BlockSize {
		return ErrMessageTooLarge
	}

	iv, ciphertext, err := cbc.Encrypt(c.block, c.rand, plaintext)
	if err != nil {
		return err
	}

	frame := appendFrame(nil, c.sendSeq, iv, ciphertext, &c.macKey)
	if _, err := c.conn.Write(frame); err != nil {
		return err
	}
	c.sendSeq++
	return nil
}

// Receive reads one frame from the transport, verifies it, and returns the
// plaintext. Verification is strict: the sequence number must equal the
// count of messages accepted so far (no gaps, no reordering, no replays),
// and the MAC is checked before any decryption is attempted. A frame that
// fails verification does not advance the receive counter and its plaintext
// is never returned; the session itself remains usable, and aborting is the
// caller's decision.
func (c *Channel) Receive() ([]byte, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	fr, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}

	if fr.seq != c.recvSeq {
		return nil, ErrSequence
	}

	tag := frameTag(fr.seq, fr.iv, fr.ciphertext, &c.macKey)
	if !hmac.Equal(fr.tag[:], tag[:]) {
		return nil, ErrMACInvalid
	}

	plaintext, err := cbc.Decrypt(c.block, fr.iv, fr.ciphertext)
	if err != nil {
		// Authenticated frames only carry well-formed padding unless the
		// peer itself is misbehaving; report it like a MAC failure.
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	c.recvSeq++
	return plaintext, nil
}

// Close destroys the session's key material, including the cipher's expanded
// key schedule, and marks the channel closed. It does not close the
// underlying transport, which the channel does not own. Close is idempotent.
//
// Close waits for in-flight Send and Receive calls to return. A Receive
// blocked on the transport holds its half's lock, so close the transport
// first to unblock it.
func (c *Channel) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	mem.Wipe(c.encKey[:])
	mem.Wipe(c.macKey[:])
	c.block.Wipe()
	c.block = nil
	c.sendSeq = 0
	c.recvSeq = 0
}

// SendCount returns the number of messages sent so far.
func (c *Channel) SendCount() uint64 {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendSeq
}

// ReceiveCount returns the number of messages accepted so far.
func (c *Channel) ReceiveCount() uint64 {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()
	return c.recvSeq
}
