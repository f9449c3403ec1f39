// Package audit records security-relevant events (logins, logouts, password
// changes) to the database and optionally fans them out to Kafka.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"asset-manager/backend/internal/audit/domain"
	auditrepo "asset-manager/backend/internal/audit/repository"
)

// EventProducer fans audit events out to an external stream. Implementations
// must tolerate nil receivers so a disabled producer can be passed through.
type EventProducer interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// Logger writes audit events. LogEvent is best-effort: failures are logged and
// never affect the calling request.
type Logger struct {
	repo     auditrepo.Repository
	producer EventProducer
	nowFn    func() time.Time
}

// NewLogger returns a Logger that persists to repo and, when producer is
// non-nil, also emits each event to the stream.
func NewLogger(repo auditrepo.Repository, producer EventProducer) *Logger {
	return &Logger{
		repo:     repo,
		producer: producer,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent writes one audit entry. userID may be empty when no user resolved.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.nowFn(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
		return
	}
	if l.producer != nil {
		if err := l.producer.Emit(ctx, entry); err != nil {
			log.Printf("audit: failed to emit event %s/%s: %v", action, resource, err)
		}
	}
}
