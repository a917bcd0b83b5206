package sessionfuture_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/websoft9/honeyshell/internal/sessionfuture"
)

func TestStringAwaitResolved(t *testing.T) {
	f := sessionfuture.NewString()
	f.Resolve("abcd1234")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, ok := f.Await(ctx)
	if !ok || v != "abcd1234" {
		t.Fatalf("Await = %q, %v; want abcd1234, true", v, ok)
	}
}

func TestStringAwaitTimeout(t *testing.T) {
	f := sessionfuture.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := f.Await(ctx)
	if ok {
		t.Fatal("Await returned ok=true before Resolve was called")
	}
}

func TestStringResolveOnlyFirstWins(t *testing.T) {
	f := sessionfuture.NewString()
	f.Resolve("first")
	f.Resolve("second")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, _ := f.Await(ctx)
	if v != "first" {
		t.Fatalf("got %q, want %q", v, "first")
	}
}

func TestStringConcurrentAwaiters(t *testing.T) {
	f := sessionfuture.NewString()

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			v, ok := f.Await(ctx)
			if ok {
				results[i] = v
			}
		}(i)
	}

	time.Sleep(5 * time.Millisecond)
	f.Resolve("deadbeef")
	wg.Wait()

	for i, v := range results {
		if v != "deadbeef" {
			t.Errorf("awaiter %d got %q, want deadbeef", i, v)
		}
	}
}

func TestStringPeek(t *testing.T) {
	f := sessionfuture.NewString()
	if _, resolved := f.Peek(); resolved {
		t.Fatal("Peek reported resolved before Resolve")
	}
	f.Resolve("cafef00d")
	v, resolved := f.Peek()
	if !resolved || v != "cafef00d" {
		t.Fatalf("Peek = %q, %v; want cafef00d, true", v, resolved)
	}
}
