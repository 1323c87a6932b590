package ratelimit

import "testing"

func TestAllowConsumesBurstThenBlocks(t *testing.T) {
	l := New(3, 0) // no refill

	for i := 0; i < 3; i++ {
		if !l.Allow("client-a") {
			t.Fatalf("request %d inside burst was blocked", i+1)
		}
	}
	if l.Allow("client-a") {
		t.Fatal("request past burst capacity was allowed")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New(1, 0)

	if !l.Allow("client-a") {
		t.Fatal("first request for client-a blocked")
	}
	if l.Allow("client-a") {
		t.Fatal("second request for client-a allowed")
	}
	if !l.Allow("client-b") {
		t.Fatal("client-b should have its own bucket")
	}
}
