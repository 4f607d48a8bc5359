package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllow_Burst(t *testing.T) {
	krl := New(1, 2)

	if !krl.Allow("voice-a") {
		t.Error("first request should be allowed")
	}
	if !krl.Allow("voice-a") {
		t.Error("second request within burst should be allowed")
	}
	if krl.Allow("voice-a") {
		t.Error("third request should exceed burst")
	}
}

func TestAllow_IndependentKeys(t *testing.T) {
	krl := New(1, 1)

	if !krl.Allow("voice-a") {
		t.Error("voice-a should be allowed")
	}
	if !krl.Allow("voice-b") {
		t.Error("voice-b has its own bucket and should be allowed")
	}
	if krl.Allow("voice-a") {
		t.Error("voice-a bucket should be drained")
	}
}

func TestWait_RespectsContext(t *testing.T) {
	krl := New(0.001, 1)
	krl.Allow("voice-a") // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := krl.Wait(ctx, "voice-a"); err == nil {
		t.Error("Wait should fail once the context deadline passes")
	}
}
