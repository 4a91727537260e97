package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 100; i++ {
		if err := q.Send(i); err != nil {
			t.Fatalf("Send(%d): %v", i, err)
		}
	}
	if q.Len() != 100 {
		t.Fatalf("Len: got %d, want 100", q.Len())
	}
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		v, err := q.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if v != i {
			t.Fatalf("Recv: got %d, want %d", v, i)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Len after drain: got %d, want 0", q.Len())
	}
}

func TestQueueRecvBlocksUntilSend(t *testing.T) {
	q := NewQueue[string]()
	got := make(chan string, 1)
	go func() {
		v, err := q.Recv(context.Background())
		if err != nil {
			t.Errorf("Recv: %v", err)
		}
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Recv returned %q before Send", v)
	case <-time.After(20 * time.Millisecond):
	}

	q.Send("hello")
	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("got %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not wake after Send")
	}
}

func TestQueueRecvContextCancel(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Recv(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Recv: got %v, want DeadlineExceeded", err)
	}
}

func TestQueueClose(t *testing.T) {
	q := NewQueue[int]()
	q.Send(1)
	q.Send(2)
	q.Close()

	if err := q.Send(3); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after Close: got %v, want ErrClosed", err)
	}

	// Items queued before Close are still delivered.
	ctx := context.Background()
	for _, want := range []int{1, 2} {
		v, err := q.Recv(ctx)
		if err != nil || v != want {
			t.Fatalf("Recv: got (%d, %v), want (%d, nil)", v, err, want)
		}
	}
	if _, err := q.Recv(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Recv on drained closed queue: got %v, want ErrClosed", err)
	}
}

func TestQueueCloseWakesReceiver(t *testing.T) {
	q := NewQueue[int]()
	done := make(chan error, 1)
	go func() {
		_, err := q.Recv(context.Background())
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("got %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not wake receiver")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Send(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	last := make(map[int]int)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for len(seen) < producers*perProducer {
		v, err := q.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv after %d items: %v", len(seen), err)
		}
		seen[v] = true
		// Per-producer order is preserved.
		p := v / perProducer
		if prev, ok := last[p]; ok && v < prev {
			t.Fatalf("producer %d out of order: %d after %d", p, v, prev)
		}
		last[p] = v
	}
	wg.Wait()
}
