package repository

import (
	"context"
	"time"

	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"gorm.io/gorm"
)

// CreateScheduledCall satisfies trigger.Store.
func (s *Store) CreateScheduledCall(ctx context.Context, sc *domain.ScheduledCall) error {
	if err := s.db.WithContext(ctx).Create(sc).Error; err != nil {
		return apperr.InternalError("failed to create scheduled call", err)
	}
	return nil
}

// SelectDueScheduledCalls satisfies scheduler.Store: every pending job
// whose scheduled_at has arrived, oldest first, capped at batch.
func (s *Store) SelectDueScheduledCalls(ctx context.Context, now time.Time, batch int) ([]*domain.ScheduledCall, error) {
	var jobs []*domain.ScheduledCall
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", domain.ScheduledCallPending, now).
		Order("scheduled_at ASC").
		Limit(batch).
		Find(&jobs).Error
	if err != nil {
		return nil, apperr.InternalError("failed to select due scheduled calls", err)
	}
	return jobs, nil
}

// LeaseScheduledCall satisfies scheduler.Store: the single-row CAS
// (id, status='pending') -> status='in_progress' that makes concurrent
// scheduler ticks safe. RowsAffected == 0 means another worker already won
// the lease (or the row no longer exists), never an error.
func (s *Store) LeaseScheduledCall(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Model(&domain.ScheduledCall{}).
		Where("id = ? AND status = ?", id, domain.ScheduledCallPending).
		Update("status", domain.ScheduledCallInProgress)
	if result.Error != nil {
		return false, apperr.InternalError("failed to lease scheduled call", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkRescheduled satisfies scheduler.Store: the job missed its calling
// window and is pushed to the next valid instant, returning to 'pending'.
func (s *Store) MarkRescheduled(ctx context.Context, id string, newScheduledAt time.Time, timezoneDelayed bool) error {
	result := s.db.WithContext(ctx).Model(&domain.ScheduledCall{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           domain.ScheduledCallPending,
			"scheduled_at":     newScheduledAt,
			"timezone_delayed": timezoneDelayed,
		})
	if result.Error != nil {
		return apperr.InternalError("failed to reschedule scheduled call", result.Error)
	}
	return nil
}

// MarkCompleted satisfies scheduler.Store.
func (s *Store) MarkCompleted(ctx context.Context, id, externalCallID string, completedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&domain.ScheduledCall{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":           domain.ScheduledCallCompleted,
			"external_call_id": externalCallID,
			"completed_at":     completedAt,
		})
	if result.Error != nil {
		return apperr.InternalError("failed to mark scheduled call completed", result.Error)
	}
	return nil
}

// MarkRetry satisfies scheduler.Store: returns the job to 'pending' with its
// retry count bumped, so the next tick's SelectDueScheduledCalls picks it up
// again immediately.
func (s *Store) MarkRetry(ctx context.Context, id, errMsg string) error {
	result := s.db.WithContext(ctx).Model(&domain.ScheduledCall{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.ScheduledCallPending,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": errMsg,
		})
	if result.Error != nil {
		return apperr.InternalError("failed to mark scheduled call for retry", result.Error)
	}
	return nil
}

// MarkFailed satisfies scheduler.Store.
func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	result := s.db.WithContext(ctx).Model(&domain.ScheduledCall{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        domain.ScheduledCallFailed,
			"error_message": errMsg,
		})
	if result.Error != nil {
		return apperr.InternalError("failed to mark scheduled call failed", result.Error)
	}
	return nil
}
