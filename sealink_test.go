package sealink_test

import (
	"bytes"
	"errors"
	"math/big"
	"sync"
	"testing"

	"sealink"
	"sealink/elgamal"
)

// A 512-bit safe-prime group; big enough to exercise the real code paths,
// small enough to keep the handshake fast.
const testPHex = "eb5616b469e696810174139c195d4da3ad8d2e22686f1bd25496e21c62bebefc" +
	"0ad33a491a7d262ddcf6e25f68baedaf19bcf65b8ea3bb710e4336a30e087e47"

func testParams(t testing.TB) *elgamal.Params {
	t.Helper()
	p, ok := new(big.Int).SetString(testPHex, 16)
	if !ok {
		t.Fatal("bad test prime")
	}
	return &elgamal.Params{P: p, G: big.NewInt(4)}
}

// pipeBuf is one direction of an in-memory transport: writes append to a
// buffer, reads block until data arrives.
type pipeBuf struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  bytes.Buffer
}

func newPipeBuf() *pipeBuf {
	b := &pipeBuf{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pipeBuf) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	b.cond.Broadcast()
	return n, err
}

func (b *pipeBuf) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 {
		b.cond.Wait()
	}
	return b.buf.Read(p)
}

// drain removes and returns all pending bytes, letting tests intercept
// frames in flight.
func (b *pipeBuf) drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.buf.Reset()
	return data
}

type duplex struct {
	in  *pipeBuf
	out *pipeBuf
}

func (d *duplex) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.out.Write(p) }

func newDuplexPair() (a, b *duplex) {
	ab, ba := newPipeBuf(), newPipeBuf()
	return &duplex{in: ba, out: ab}, &duplex{in: ab, out: ba}
}

// establish opens a channel pair over an in-memory transport.
func establish(t *testing.T) (alice, bob *sealink.Channel, aliceConn, bobConn *duplex) {
	t.Helper()
	aliceConn, bobConn = newDuplexPair()
	config := &sealink.Config{Params: testParams(t)}

	type result struct {
		ch  *sealink.Channel
		err error
	}
	bobDone := make(chan result, 1)
	go func() {
		ch, err := sealink.Open(bobConn, sealink.Responder, config)
		bobDone <- result{ch, err}
	}()

	alice, err := sealink.Open(aliceConn, sealink.Initiator, config)
	if err != nil {
		t.Fatal(err)
	}
	r := <-bobDone
	if r.err != nil {
		t.Fatal(r.err)
	}
	return alice, r.ch, aliceConn, bobConn
}

func TestChannel_RoundTrip(t *testing.T) {
	alice, bob, _, _ := establish(t)
	defer alice.Close()
	defer bob.Close()

	if err := alice.Send([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("Receive() = %q, want %q", got, "hello")
	}

	if n := alice.SendCount(); n != 1 {
		t.Errorf("alice.SendCount() = %d, want 1", n)
	}
	if n := bob.ReceiveCount(); n != 1 {
		t.Errorf("bob.ReceiveCount() = %d, want 1", n)
	}
}

func TestChannel_BothDirections(t *testing.T) {
	alice, bob, _, _ := establish(t)
	defer alice.Close()
	defer bob.Close()

	messages := [][]byte{
		[]byte(""),
		[]byte("a"),
		bytes.Repeat([]byte("block-aligned..."), 4),
		bytes.Repeat([]byte{0xff}, 1000),
	}

	for _, m := range messages {
		if err := alice.Send(m); err != nil {
			t.Fatal(err)
		}
		got, err := bob.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, m) {
			t.Errorf("bob.Receive() = %x, want %x", got, m)
		}

		if err := bob.Send(m); err != nil {
			t.Fatal(err)
		}
		got, err = alice.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, m) {
			t.Errorf("alice.Receive() = %x, want %x", got, m)
		}
	}
}

func TestChannel_CiphertextDiffersFromPlaintext(t *testing.T) {
	alice, bob, _, bobConn := establish(t)
	defer alice.Close()
	defer bob.Close()

	plaintext := []byte("this must not appear on the wire")
	if err := alice.Send(plaintext); err != nil {
		t.Fatal(err)
	}

	raw := bobConn.in.drain()
	if bytes.Contains(raw, plaintext) {
		t.Error("plaintext appeared on the wire")
	}
	if _, err := bobConn.in.Write(raw); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Receive(); err != nil {
		t.Fatal(err)
	}
}

// TestChannel_TamperDetection flips a single bit in every region of a frame
// and checks that no variant ever yields plaintext.
func TestChannel_TamperDetection(t *testing.T) {
	alice, bob, _, bobConn := establish(t)
	defer alice.Close()
	defer bob.Close()

	if err := alice.Send([]byte("authentic message")); err != nil {
		t.Fatal(err)
	}
	frame := bobConn.in.drain()

	for i := range frame {
		// The 4-byte ciphertext length at offset 24 is framing, not
		// payload; corrupting it desynchronizes the stream rather than
		// producing a complete bogus frame.
		if i >= 24 && i < 28 {
			continue
		}

		tampered := bytes.Clone(frame)
		tampered[i] ^= 0x01
		if _, err := bobConn.in.Write(tampered); err != nil {
			t.Fatal(err)
		}

		if _, err := bob.Receive(); !errors.Is(err, sealink.ErrProtocol) {
			t.Fatalf("byte %d: Receive() = %v, want a protocol error", i, err)
		}
		if n := bob.ReceiveCount(); n != 0 {
			t.Fatalf("byte %d: tampered frame advanced the receive counter", i)
		}
	}

	// The untouched frame still verifies.
	if _, err := bobConn.in.Write(frame); err != nil {
		t.Fatal(err)
	}
	got, err := bob.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("authentic message")) {
		t.Errorf("Receive() = %q, want %q", got, "authentic message")
	}
}

func TestChannel_ReplayRejected(t *testing.T) {
	alice, bob, _, bobConn := establish(t)
	defer alice.Close()
	defer bob.Close()

	if err := alice.Send([]byte("once only")); err != nil {
		t.Fatal(err)
	}
	frame := bobConn.in.drain()

	if _, err := bobConn.in.Write(frame); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Receive(); err != nil {
		t.Fatal(err)
	}

	// Replay the accepted frame.
	if _, err := bobConn.in.Write(frame); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Receive(); !errors.Is(err, sealink.ErrSequence) {
		t.Errorf("Receive(replayed) = %v, want ErrSequence", err)
	}
}

func TestChannel_GapRejected(t *testing.T) {
	alice, bob, _, bobConn := establish(t)
	defer alice.Close()
	defer bob.Close()

	if err := alice.Send([]byte("first")); err != nil {
		t.Fatal(err)
	}
	bobConn.in.drain() // drop it

	if err := alice.Send([]byte("second")); err != nil {
		t.Fatal(err)
	}
	if _, err := bob.Receive(); !errors.Is(err, sealink.ErrSequence) {
		t.Errorf("Receive(after gap) = %v, want ErrSequence", err)
	}
}

func TestChannel_ConcurrentHalves(t *testing.T) {
	alice, bob, _, _ := establish(t)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := alice.Send([]byte{byte(i)}); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			if err := bob.Send([]byte{byte(i)}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	// Each half locks separately, so receiving here races neither sender.
	for i := 0; i < n; i++ {
		got, err := bob.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, []byte{byte(i)}) {
			t.Fatalf("bob.Receive() = %x, want %x", got, []byte{byte(i)})
		}
		got, err = alice.Receive()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, []byte{byte(i)}) {
			t.Fatalf("alice.Receive() = %x, want %x", got, []byte{byte(i)})
		}
	}
	wg.Wait()

	alice.Close()
	bob.Close()
	if err := alice.Send([]byte("x")); !errors.Is(err, sealink.ErrClosed) {
		t.Fatalf("Send() after Close = %v, want ErrClosed", err)
	}
}

func TestChannel_Close(t *testing.T) {
	alice, bob, _, _ := establish(t)
	bob.Close()
	bob.Close() // idempotent

	if err := bob.Send([]byte("x")); !errors.Is(err, sealink.ErrClosed) {
		t.Errorf("Send() after Close = %v, want ErrClosed", err)
	}
	if _, err := bob.Receive(); !errors.Is(err, sealink.ErrClosed) {
		t.Errorf("Receive() after Close = %v, want ErrClosed", err)
	}

	alice.Close()
}

func TestChannel_MessageTooLarge(t *testing.T) {
	alice, bob, _, _ := establish(t)
	defer alice.Close()
	defer bob.Close()

	if err := alice.Send(make([]byte, sealink.MaxMessageSize)); !errors.Is(err, sealink.ErrMessageTooLarge) {
		t.Errorf("Send(huge) = %v, want ErrMessageTooLarge", err)
	}
}

func TestOpen_DegeneratePeer(t *testing.T) {
	aliceConn, bobConn := newDuplexPair()
	params := testParams(t)

	// Hand-roll a responder that sends the degenerate public value 1.
	pub := big.NewInt(1).Bytes()
	if _, err := bobConn.Write([]byte{0, 0, 0, byte(len(pub))}); err != nil {
		t.Fatal(err)
	}
	if _, err := bobConn.Write(pub); err != nil {
		t.Fatal(err)
	}

	_, err := sealink.Open(aliceConn, sealink.Initiator, &sealink.Config{Params: params})
	if !errors.Is(err, elgamal.ErrDegenerateKey) {
		t.Errorf("Open() = %v, want ErrDegenerateKey", err)
	}

	// Likewise for p-1.
	aliceConn, bobConn = newDuplexPair()
	pub = new(big.Int).Sub(params.P, big.NewInt(1)).Bytes()
	if _, err := bobConn.Write([]byte{0, 0, 0, byte(len(pub))}); err != nil {
		t.Fatal(err)
	}
	if _, err := bobConn.Write(pub); err != nil {
		t.Fatal(err)
	}

	_, err = sealink.Open(aliceConn, sealink.Initiator, &sealink.Config{Params: params})
	if !errors.Is(err, elgamal.ErrDegenerateKey) {
		t.Errorf("Open() = %v, want ErrDegenerateKey", err)
	}
}

func TestOpen_InvalidParams(t *testing.T) {
	aliceConn, _ := newDuplexPair()
	bad := &elgamal.Params{P: big.NewInt(1 << 20), G: big.NewInt(4)}

	_, err := sealink.Open(aliceConn, sealink.Initiator, &sealink.Config{Params: bad})
	if !errors.Is(err, elgamal.ErrInvalidParams) {
		t.Errorf("Open() = %v, want ErrInvalidParams", err)
	}
}

func TestOpen_OversizedHandshake(t *testing.T) {
	aliceConn, bobConn := newDuplexPair()

	// Announce a public value far larger than the group allows.
	if _, err := bobConn.Write([]byte{0xff, 0xff, 0xff, 0xff}); err != nil {
		t.Fatal(err)
	}

	_, err := sealink.Open(aliceConn, sealink.Initiator, &sealink.Config{Params: testParams(t)})
	if !errors.Is(err, sealink.ErrProtocol) {
		t.Errorf("Open() = %v, want ErrProtocol", err)
	}
}

// TestChannel_IndependentSessions checks that sessions share no state: a
// frame authenticated under one session's keys must not verify under
// another's.
func TestChannel_IndependentSessions(t *testing.T) {
	a1, b1, _, conn1 := establish(t)
	defer a1.Close()
	defer b1.Close()
	a2, b2, _, conn2 := establish(t)
	defer a2.Close()
	defer b2.Close()

	if err := a1.Send([]byte("cross-session")); err != nil {
		t.Fatal(err)
	}
	frame := conn1.in.drain()

	// Smuggle session 1's frame into session 2.
	if _, err := conn2.in.Write(frame); err != nil {
		t.Fatal(err)
	}
	if _, err := b2.Receive(); !errors.Is(err, sealink.ErrMACInvalid) {
		t.Errorf("b2.Receive(session 1 frame) = %v, want ErrMACInvalid", err)
	}

	// Session 1 still accepts it.
	if _, err := conn1.in.Write(frame); err != nil {
		t.Fatal(err)
	}
	got, err := b1.Receive()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte("cross-session")) {
		t.Fatalf("b1.Receive() = %q, want %q", got, "cross-session")
	}
}

func TestRole_String(t *testing.T) {
	if got := sealink.Initiator.String(); got != "initiator" {
		t.Errorf("Initiator.String() = %q", got)
	}
	if got := sealink.Responder.String(); got != "responder" {
		t.Errorf("Responder.String() = %q", got)
	}
}
