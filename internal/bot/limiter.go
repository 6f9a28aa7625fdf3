package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedChats = 10000

// chatLimiter hands out one token bucket per chat. A zero rate disables it.
type chatLimiter struct {
	perMinute int

	mu    sync.Mutex
	chats map[int64]*rate.Limiter
}

func newChatLimiter(perMinute int) *chatLimiter {
	return &chatLimiter{
		perMinute: perMinute,
		chats:     make(map[int64]*rate.Limiter),
	}
}

func (l *chatLimiter) Allow(chatID int64) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.chats[chatID]
	if !ok {
		if len(l.chats) >= maxTrackedChats {
			l.chats = make(map[int64]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.chats[chatID] = limiter
	}

	return limiter.Allow()
}
