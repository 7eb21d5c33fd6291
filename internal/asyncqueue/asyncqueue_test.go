package asyncqueue

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsTasksFIFO(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tasks to run")
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestQueueFlushSynchronizes(t *testing.T) {
	q := NewQueue(8)
	defer q.Close()

	var counter int64
	for i := 0; i < 20; i++ {
		q.Enqueue(func() { atomic.AddInt64(&counter, 1) })
	}
	q.Flush()
	if atomic.LoadInt64(&counter) != 20 {
		t.Fatalf("expected all 20 tasks to have run by Flush, got %d", counter)
	}
}

func TestQueueCloseDrainsRemainingTasks(t *testing.T) {
	q := NewQueue(8)
	var counter int64
	for i := 0; i < 5; i++ {
		q.Enqueue(func() { atomic.AddInt64(&counter, 1) })
	}
	q.Close()
	if atomic.LoadInt64(&counter) != 5 {
		t.Fatalf("expected all tasks drained on Close, got %d", counter)
	}
}

func TestDeferringQueueOnlyRunsOnPerform(t *testing.T) {
	q := NewDeferringQueue()
	var ran bool
	q.Enqueue(func() { ran = true })
	if ran {
		t.Fatalf("task must not run before Perform is called")
	}
	if q.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", q.Pending())
	}
	q.Perform()
	if !ran {
		t.Fatalf("expected task to run after Perform")
	}
	if q.Pending() != 0 {
		t.Fatalf("expected queue empty after Perform")
	}
}

func TestDeferringQueueFIFOOrder(t *testing.T) {
	q := NewDeferringQueue()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(func() { order = append(order, i) })
	}
	q.Perform()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}
