package udp

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestSenderRoundTrip(t *testing.T) {
	recv, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("binding receiver: %v", err)
	}
	defer recv.Close()

	sender, err := NewSender(recv.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	sent := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := sender.Send(sent); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 16)
	if err := recv.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	n, _, err := recv.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if n != len(sent) {
		t.Fatalf("received %d bytes, want %d", n, len(sent))
	}
	for i := range sent {
		if buf[i] != sent[i] {
			t.Errorf("byte %d = %#x, want %#x", i, buf[i], sent[i])
		}
	}
}

func TestSenderClosed(t *testing.T) {
	recv, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("binding receiver: %v", err)
	}
	defer recv.Close()

	sender, err := NewSender(recv.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send after Close = %v, want ErrSenderClosed", err)
	}
}

func TestNewSenderBadAddress(t *testing.T) {
	if _, err := NewSender("not a host:port:extra"); err == nil {
		t.Fatal("expected an error for an unresolvable address")
	}
}
