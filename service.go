package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// OwnerLookup reports the owner user ID of a server. The library never
// guesses ownership; host applications inject their own lookup (the servers
// table lives outside PermKit). A missing lookup means no owner bypass at
// the service level.
type OwnerLookup func(ctx context.Context, serverID string) (string, error)

// Service provides role and override storage plus snapshot-based permission
// resolution. It integrates with the database through dbkit with enhanced
// error handling.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Errors include operation names,
// database context, and preserve original error types for classification.
//
// Example error handling:
//
//	err := service.AssignRole(ctx, serverID, userID, roleID)
//	if err != nil {
//	    if permkit.IsCannotManageRole(err) {
//	        // actor lacks rank or the manageRoles gate
//	    }
//	    if dbkit.IsNotFound(err) {
//	        // role does not exist
//	    }
//	}
type Service struct {
	db          dbkit.IDB
	ownerLookup OwnerLookup
	txMonitor   *transactionMonitor
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithOwnerLookup injects the host application's server-owner lookup.
//
// Example:
//
//	service := permkit.NewService(db,
//	    permkit.WithOwnerLookup(func(ctx context.Context, serverID string) (string, error) {
//	        return app.Servers.OwnerID(ctx, serverID)
//	    }))
func WithOwnerLookup(fn OwnerLookup) ServiceOption {
	return func(s *Service) {
		s.ownerLookup = fn
	}
}

// NewService creates a new PermKit service.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := permkit.NewService(db)
func NewService(db dbkit.IDB, opts ...ServiceOption) *Service {
	s := &Service{
		db:        db,
		txMonitor: newTransactionMonitor(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// isServerOwner resolves ownership through the injected lookup. Without a
// lookup, nobody gets the owner bypass.
func (s *Service) isServerOwner(ctx context.Context, serverID, userID string) bool {
	if s.ownerLookup == nil || userID == "" {
		return false
	}
	ownerID, err := s.ownerLookup(ctx, serverID)
	if err != nil {
		return false
	}
	return ownerID != "" && ownerID == userID
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]PermissionAuditLog, error) {
	var logs []PermissionAuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.TargetUserID != "" {
		q = q.Where("target_user_id = ?", filter.TargetUserID)
	}
	if filter.ServerID != "" {
		q = q.Where("server_id = ?", filter.ServerID)
	}
	if filter.ChannelID != "" {
		q = q.Where("channel_id = ?", filter.ChannelID)
	}
	if filter.RoleID != "" {
		q = q.Where("role_id = ?", filter.RoleID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return logs, nil
}
