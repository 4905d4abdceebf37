package limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const cleanupInterval = 30 * time.Minute

// ChatLimiter keeps one token bucket per chat.
type ChatLimiter struct {
	mu        sync.Mutex
	limits    map[int64]*rate.Limiter
	rate      rate.Limit
	burst     int
	isEnabled bool
}

// NewChatLimiter returns a limiter allowing rateLimit events per second per
// chat. A rateLimit of -1 disables limiting.
func NewChatLimiter(rateLimit rate.Limit, burst int) *ChatLimiter {
	if rateLimit == -1 {
		return &ChatLimiter{
			isEnabled: false,
		}
	}

	return &ChatLimiter{
		limits:    make(map[int64]*rate.Limiter),
		rate:      rateLimit,
		burst:     burst,
		isEnabled: true,
	}
}

// Run drops idle buckets until ctx is done.
func (c *ChatLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *ChatLimiter) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for chatID, limit := range c.limits {
		if limit.Tokens() >= float64(c.burst) {
			delete(c.limits, chatID)
		}
	}
}

func (c *ChatLimiter) get(chatID int64) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limits[chatID]

	if !ok {
		limiter = rate.NewLimiter(c.rate, c.burst)
		c.limits[chatID] = limiter
	}

	return limiter
}

// Wait blocks until chatID may send again. Other chats are not held up.
func (c *ChatLimiter) Wait(ctx context.Context, chatID int64) error {
	if !c.isEnabled {
		return nil
	}

	return c.get(chatID).Wait(ctx)
}

func (c *ChatLimiter) Check(chatID int64) bool {
	if !c.isEnabled {
		return true
	}

	return c.get(chatID).Allow()
}

func (c *ChatLimiter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.limits)
}
