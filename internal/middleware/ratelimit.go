package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/patient-feedback-server/internal/domain"
)

// SubmitLimiter rate-limits feedback submissions per client IP with a
// token bucket. Idle client buckets are dropped periodically.
type SubmitLimiter struct {
	cfg     domain.RateLimitConfig
	log     *logrus.Logger
	mu      sync.Mutex
	clients map[string]*clientBucket

	stop     chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSubmitLimiter creates a submission rate limiter and starts its
// cleanup loop.
func NewSubmitLimiter(cfg domain.RateLimitConfig, logger *logrus.Logger) *SubmitLimiter {
	l := &SubmitLimiter{
		cfg:      cfg,
		log:      logger,
		clients:  make(map[string]*clientBucket),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (l *SubmitLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Handler returns the gin middleware enforcing the limit.
func (l *SubmitLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.cfg.Enabled {
			c.Next()
			return
		}
		if !l.allow(c.ClientIP()) {
			l.log.WithField("client_ip", c.ClientIP()).Warn("Submission rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (l *SubmitLimiter) allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.clients[clientIP]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[clientIP] = bucket
	}
	bucket.lastSeen = time.Now()
	return bucket.limiter.Allow()
}

func (l *SubmitLimiter) cleanupLoop() {
	defer close(l.loopDone)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-30 * time.Minute)
			l.mu.Lock()
			for ip, bucket := range l.clients {
				if bucket.lastSeen.Before(cutoff) {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}
