package wire

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestWriter_EnqueueDeliversToPeer(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	w := NewWriter(srv, 4)
	defer w.Close()

	done := make(chan error, 1)
	go func() { done <- w.Enqueue(context.Background(), Frame{0x01}) }()

	buf := make([]byte, 1)
	_ = cli.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := cli.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if buf[0] != 0x01 {
		t.Fatalf("got %d, want 1", buf[0])
	}
	if err := <-done; err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func TestWriter_CloseStopsLoop(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	w := NewWriter(srv, 4)
	w.Close()
	if err := w.Enqueue(context.Background(), Frame{0x01}); err != ErrClosed {
		t.Fatalf("Enqueue after Close = %v, want ErrClosed", err)
	}
	// Close is idempotent.
	w.Close()
}

func TestWriter_EnqueueRespectsContextCancel(t *testing.T) {
	srv, cli := net.Pipe()
	defer srv.Close()
	defer cli.Close()

	// Buffer of 1, fill it without draining so the timed Enqueue blocks.
	w := NewWriter(srv, 1)
	// Close srv first so the loop's pending Write returns and Close can
	// wait for the loop to exit.
	defer func() { _ = srv.Close(); w.Close() }()

	go func() {
		_ = cli.SetReadDeadline(time.Now().Add(5 * time.Second))
		buf := make([]byte, 16)
		_, _ = cli.Read(buf)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// The reader goroutine above drains at most one write, the loop then
	// blocks writing the next frame, and the buffer holds one more: three
	// frames guarantee the channel is full.
	for _, b := range []byte{0x01, 0x02, 0x03} {
		_ = w.Enqueue(context.Background(), Frame{b})
	}
	err := w.Enqueue(ctx, Frame{0x04})
	if err == nil {
		t.Fatalf("expected context deadline error, got nil")
	}
}

func TestWriter_ErrSetOnWriteFailure(t *testing.T) {
	srv, cli := net.Pipe()
	defer cli.Close()

	w := NewWriter(srv, 4)
	_ = srv.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if err := w.Enqueue(context.Background(), Frame{0x01}); err != nil {
			break
		}
		time.Sleep(time.Millisecond)
	}
	w.Close()
	if w.Err() == nil {
		t.Fatalf("expected Err() to report the write failure")
	}
}
