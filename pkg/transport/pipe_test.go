package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestPipeDelivery(t *testing.T) {
	pipe := NewPipe()
	defer pipe.Close()
	conn0, conn1 := pipe.PacketConns()

	msg := []byte{0x30, 0x01, 0x02, 0x03, 0x00, 0x00, 0x00, 0x00}
	if _, err := conn0.WriteTo(msg, conn0.LocalAddr()); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	buf := make([]byte, 64)
	conn1.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, addr, err := conn1.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("read = %v, want %v", buf[:n], msg)
	}
	if got, want := addr.String(), (PipeAddr{ID: 0, Port: DefaultPort}).String(); got != want {
		t.Errorf("peer addr = %s, want %s", got, want)
	}
}

func TestPipeManualProcessing(t *testing.T) {
	pipe := NewPipeWithConfig(PipeConfig{AutoProcess: false})
	defer pipe.Close()
	conn0, conn1 := pipe.PacketConns()

	if pipe.AutoProcess() {
		t.Fatal("AutoProcess() = true, want false")
	}

	msg := []byte{0x01, 0x02}
	if _, err := conn0.WriteTo(msg, nil); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}

	// Nothing is delivered until Process runs.
	conn1.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	buf := make([]byte, 64)
	if _, _, err := conn1.ReadFrom(buf); err == nil {
		t.Fatal("ReadFrom() succeeded before Process()")
	}

	if n := pipe.Process(); n == 0 {
		t.Fatal("Process() delivered no datagrams")
	}

	conn1.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, _, err := conn1.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("read = %v, want %v", buf[:n], msg)
	}
}

func TestPipeDropCondition(t *testing.T) {
	pipe := NewPipeWithConfig(PipeConfig{AutoProcess: false})
	defer pipe.Close()
	conn0, conn1 := pipe.PacketConns()

	pipe.SetCondition(NetworkCondition{DropRate: 1.0})

	if _, err := conn0.WriteTo([]byte{0x01}, nil); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n := pipe.Process(); n != 0 {
		t.Errorf("Process() = %d datagrams, want 0 with full drop", n)
	}

	pipe.SetCondition(NetworkCondition{})
	if _, err := conn0.WriteTo([]byte{0x02}, nil); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	pipe.Process()

	buf := make([]byte, 64)
	conn1.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, _, err := conn1.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{0x02}) {
		t.Errorf("read = %v, want [2]", buf[:n])
	}
}

func TestPipeCloseIsIdempotent(t *testing.T) {
	pipe := NewPipe()
	if err := pipe.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pipe.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
