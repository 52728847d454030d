// Package audit records who changed which row, and how, in the same
// transaction as the change itself.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opdemr/opdemr/internal/platform/apperr"
	"github.com/opdemr/opdemr/internal/platform/auth"
)

// Recorder is what the domain services depend on.
type Recorder interface {
	Record(ctx context.Context, table string, recordID int64, action string, before, after any) error
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Record writes an audit row. before and after are JSON encoded; pass nil
// for the side that does not exist (before on INSERT, after on DELETE).
func (s *Service) Record(ctx context.Context, table string, recordID int64, action string, before, after any) error {
	switch action {
	case ActionInsert, ActionUpdate, ActionDelete:
	default:
		return fmt.Errorf("audit: unknown action %q", action)
	}
	oldValues, err := encode(before)
	if err != nil {
		return apperr.Persistence("encode audit old values", err)
	}
	newValues, err := encode(after)
	if err != nil {
		return apperr.Persistence("encode audit new values", err)
	}
	return s.repo.Create(ctx, &Entry{
		TableName: table,
		RecordID:  recordID,
		Action:    action,
		OldValues: oldValues,
		NewValues: newValues,
		ChangedBy: auth.ActorFromContext(ctx),
		ChangedAt: s.now(),
	})
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func encode(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// Nop discards every record. Used by tests and tools that do not audit.
type Nop struct{}

func (Nop) Record(context.Context, string, int64, string, any, any) error { return nil }
