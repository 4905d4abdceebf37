package limiter

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestCheckIsPerChat(t *testing.T) {
	limiter := NewChatLimiter(rate.Every(time.Hour), 1)

	if !limiter.Check(1) {
		t.Error("first event of chat 1 must pass")
	}

	if limiter.Check(1) {
		t.Error("second event of chat 1 must be limited")
	}

	if !limiter.Check(2) {
		t.Error("chat 2 must not be limited by chat 1")
	}
}

func TestDisabledLimiter(t *testing.T) {
	limiter := NewChatLimiter(-1, 0)

	for i := 0; i < 10; i++ {
		if !limiter.Check(1) {
			t.Fatal("disabled limiter must allow everything")
		}
	}

	if err := limiter.Wait(context.Background(), 1); err != nil {
		t.Error(err)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	limiter := NewChatLimiter(rate.Every(time.Hour), 1)
	limiter.Check(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, 1); err == nil {
		t.Error("wait past the deadline must fail")
	}
}

func TestCleanupDropsIdleChats(t *testing.T) {
	limiter := NewChatLimiter(rate.Every(time.Hour), 1)
	limiter.get(1)
	limiter.Check(2)

	limiter.cleanup()

	if limiter.Len() != 1 {
		t.Error("only the idle chat must be dropped")
	}
}
