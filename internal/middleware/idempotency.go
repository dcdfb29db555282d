package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type IdempotencyRecord struct {
	Status     int
	Body       []byte
	CreatedAt  time.Time
	Processing bool // first request still running
}

// IdempotencyStore locks a key for the first request and keeps its response.
type IdempotencyStore interface {
	// GetOrLock returns (record, true) when the key is known, or locks it for
	// the caller and returns (nil, false).
	GetOrLock(key string) (*IdempotencyRecord, bool)
	Save(key string, status int, body []byte)
	Unlock(key string)
}

// InMemIdempotencyStore backs single-node deployments and tests.
type InMemIdempotencyStore struct {
	mu        sync.Mutex
	records   map[string]IdempotencyRecord
	ttl       time.Duration
	lastSweep time.Time
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemIdempotencyStore{records: make(map[string]IdempotencyRecord), ttl: ttl, lastSweep: time.Now()}
}

func (s *InMemIdempotencyStore) GetOrLock(key string) (*IdempotencyRecord, bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)

	if rec, ok := s.records[key]; ok && now.Sub(rec.CreatedAt) < s.ttl {
		return &rec, true
	}
	s.records[key] = IdempotencyRecord{Processing: true, CreatedAt: now}
	return nil, false
}

func (s *InMemIdempotencyStore) Save(key string, status int, body []byte) {
	s.mu.Lock()
	s.records[key] = IdempotencyRecord{Status: status, Body: body, CreatedAt: time.Now()}
	s.mu.Unlock()
}

func (s *InMemIdempotencyStore) Unlock(key string) {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}

func (s *InMemIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// sweep drops expired records at most once per ttl. Callers hold mu.
func (s *InMemIdempotencyStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	for k, rec := range s.records {
		if now.Sub(rec.CreatedAt) >= s.ttl {
			delete(s.records, k)
		}
	}
	s.lastSweep = now
}

// IdempotencyMiddleware replays the stored response of a retried write
// (same player, same route, same X-Idempotency-Key) instead of buying or
// bidding twice. A 5xx response unlocks the key so the client may retry.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		player := PlayerID(c)
		if idemKey == "" || player == "" || c.Request.Method == http.MethodGet {
			c.Next()
			return
		}
		scoped := player + ":" + c.Request.Method + " " + c.FullPath() + ":" + idemKey

		if rec, hit := store.GetOrLock(scoped); hit {
			if rec.Processing {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"code": "REQUEST_IN_PROGRESS", "message": "a request with this idempotency key is still running"})
				return
			}
			c.Header("Idempotent-Replay", "true")
			c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
			c.Abort()
			return
		}

		rw := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		if status := c.Writer.Status(); status < http.StatusInternalServerError {
			store.Save(scoped, status, rw.body)
		} else {
			store.Unlock(scoped)
		}
	}
}

type recordingWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}
