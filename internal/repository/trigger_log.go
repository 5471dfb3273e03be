package repository

import (
	"context"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
)

// WriteTriggerLog satisfies trigger.Store.
func (s *Store) WriteTriggerLog(ctx context.Context, tl *domain.TriggerLog) error {
	if err := s.db.WithContext(ctx).Create(tl).Error; err != nil {
		return apperr.InternalError("failed to write trigger log", err)
	}
	return nil
}
