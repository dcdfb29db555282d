package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mcbn/tradepost/internal/model"
	"github.com/mcbn/tradepost/internal/pkg/logger"
)

// AuditService records every write request. Entries go to an in-memory ring
// right away and are drained asynchronously to the repo and a daily jsonl file.
type AuditService struct {
	logChan chan *model.AuditLog
	logFile *os.File
	buffer  *auditBuffer
	repo    AuditRepo
	log     *slog.Logger
	done    chan struct{}
	once    sync.Once
}

type AuditRepo interface {
	Insert(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, playerID string, limit int, from, to *time.Time) ([]*model.AuditLog, error)
}

// NewAuditService opens today's audit file under logDir. An empty logDir
// keeps the audit trail in the ring buffer and repo only.
func NewAuditService(logDir string, repo AuditRepo) (*AuditService, error) {
	svc := &AuditService{
		logChan: make(chan *model.AuditLog, 1000),
		buffer:  newAuditBuffer(1000),
		repo:    repo,
		log:     logger.Component("audit"),
		done:    make(chan struct{}),
	}
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		filename := filepath.Join(logDir, "audit-"+time.Now().Format("2006-01-02")+".jsonl")
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		svc.logFile = f
	}

	go svc.processLogs()
	return svc, nil
}

func (s *AuditService) Log(entry *model.AuditLog) {
	s.buffer.Add(entry)
	select {
	case s.logChan <- entry:
	default:
		s.log.Warn("audit queue full, entry kept in memory only", "request_id", entry.ID)
	}
}

// List prefers the repo and falls back to the in-memory ring.
func (s *AuditService) List(ctx context.Context, playerID string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if s.repo != nil {
		records, err := s.repo.List(ctx, playerID, limit, from, to)
		if err == nil {
			return records, nil
		}
		logger.LogError(ctx, err, "audit repo list failed, serving buffer")
	}
	return s.buffer.List(playerID, limit, from, to), nil
}

func (s *AuditService) processLogs() {
	defer close(s.done)
	var encoder *json.Encoder
	if s.logFile != nil {
		encoder = json.NewEncoder(s.logFile)
	}
	for entry := range s.logChan {
		if s.repo != nil {
			if err := s.repo.Insert(context.Background(), entry); err != nil {
				s.log.Error("audit insert failed", "request_id", entry.ID, "error", err)
			}
		}
		if encoder != nil {
			if err := encoder.Encode(entry); err != nil {
				s.log.Error("audit file write failed", "request_id", entry.ID, "error", err)
			}
		}
	}
}

// Close drains queued entries and closes the file.
func (s *AuditService) Close() {
	s.once.Do(func() {
		close(s.logChan)
		<-s.done
		if s.logFile != nil {
			s.logFile.Close()
		}
	})
}

type auditBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.AuditLog
	nextIndex int
}

func newAuditBuffer(maxSize int) *auditBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &auditBuffer{
		maxSize: maxSize,
		records: make([]*model.AuditLog, 0, maxSize),
	}
}

func (b *auditBuffer) Add(entry *model.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, entry)
		return
	}
	b.records[b.nextIndex] = entry
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

// List returns matching entries, newest first.
func (b *auditBuffer) List(playerID string, limit int, from, to *time.Time) []*model.AuditLog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.AuditLog, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		entry := b.records[idx]
		if entry == nil {
			continue
		}
		if playerID != "" && entry.PlayerID != playerID {
			continue
		}
		if from != nil && entry.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && entry.CreatedAt.After(*to) {
			continue
		}
		results = append(results, entry)
		if len(results) >= limit {
			break
		}
	}
	return results
}
