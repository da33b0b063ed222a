package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection.
type Database interface {
	dbkit.IDB
}

// PermissionSource resolves effective permissions for a (user, channel)
// pair. *Service implements it; middleware and handlers depend on this
// narrow interface so tests can substitute a stub.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, serverID, channelID, userID string) (Effective, error)
	GetChecker(ctx context.Context, serverID, channelID, userID string) (*Checker, error)
}

// RoleStore defines the role read/write surface of the service.
type RoleStore interface {
	ServerRoles(ctx context.Context, serverID string) ([]Role, error)
	UserRoles(ctx context.Context, serverID, userID string) ([]Role, error)
	GetRole(ctx context.Context, roleID string) (*Role, error)
	CreateRole(ctx context.Context, role *Role) error
	UpdateRole(ctx context.Context, role *Role) error
	DeleteRole(ctx context.Context, roleID string) error
	AssignRole(ctx context.Context, serverID, userID, roleID string) error
	UnassignRole(ctx context.Context, serverID, userID, roleID string) error
}

// OverrideStore defines the override read/write surface of the service.
type OverrideStore interface {
	ChannelOverrides(ctx context.Context, channelID string) ([]ChannelPermissionOverride, error)
	SetOverride(ctx context.Context, serverID string, override *ChannelPermissionOverride) error
	RemoveOverride(ctx context.Context, serverID, overrideID string) error
	RemoveChannelOverrides(ctx context.Context, channelID string) error
}

// AuditLogger defines the audit log read surface of the service.
type AuditLogger interface {
	GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]PermissionAuditLog, error)
}

// TransactionManager defines the transaction management interface.
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HealthMonitor defines the health monitoring interface.
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// TransactionMonitor defines the transaction monitoring interface.
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
