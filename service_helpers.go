package permkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

func (s *Service) logAudit(ctx context.Context, entry *AuditEntry) error {
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// AssignRoleWithRetry assigns a role with automatic retry for transient
// database errors (connection drops, deadlocks). Authorization failures are
// never retried.
func (s *Service) AssignRoleWithRetry(ctx context.Context, serverID, userID, roleID string) error {
	return s.assignRoleWithRetry(ctx, serverID, userID, roleID, 3)
}

func (s *Service) assignRoleWithRetry(ctx context.Context, serverID, userID, roleID string, maxAttempts int) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.AssignRole(ctx, serverID, userID, roleID)
		if err == nil {
			if s.txMonitor != nil {
				s.txMonitor.record(0, true)
			}
			return nil
		}

		lastErr = err

		if !isTransientError(err) {
			if s.txMonitor != nil {
				s.txMonitor.record(0, false)
			}
			return err
		}

		if attempt == maxAttempts-1 {
			break
		}

		// Exponential backoff with jitter.
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
		time.Sleep(backoff + jitter)
	}

	if s.txMonitor != nil {
		s.txMonitor.record(0, false)
	}

	return lastErr
}

// isTransientError checks if an error is transient and can be retried.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// A dead context stays dead; retrying cannot help.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	// PermKit's own sentinels are never transient.
	var pkErr *Error
	if errors.As(err, &pkErr) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transient := []string{
		"connection",
		"timeout",
		"deadlock",
		"lock wait timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"try again",
		"resource temporarily unavailable",
	}
	for _, marker := range transient {
		if strings.Contains(errStr, marker) {
			return true
		}
	}

	return false
}
