package permkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required for PermKit.
// Use db.Migrate(ctx, service.Migrations()) to run migrations.
func (s *Service) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "permkit-001",
			Description: "Create roles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS roles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    server_id TEXT NOT NULL,
                    name TEXT NOT NULL,
                    color TEXT,
                    position INTEGER NOT NULL DEFAULT 0,
                    read_messages BOOLEAN NOT NULL DEFAULT FALSE,
                    send_messages BOOLEAN NOT NULL DEFAULT FALSE,
                    manage_messages BOOLEAN NOT NULL DEFAULT FALSE,
                    manage_channels BOOLEAN NOT NULL DEFAULT FALSE,
                    manage_roles BOOLEAN NOT NULL DEFAULT FALSE,
                    manage_server BOOLEAN NOT NULL DEFAULT FALSE,
                    mention_everyone BOOLEAN NOT NULL DEFAULT FALSE,
                    administrator BOOLEAN NOT NULL DEFAULT FALSE,
                    mentionable BOOLEAN NOT NULL DEFAULT FALSE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_roles_server ON roles (server_id)`,
		},
		{
			ID:          "permkit-002",
			Description: "Create role_assignments table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_assignments (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    server_id TEXT NOT NULL,
                    user_id TEXT NOT NULL,
                    role_id UUID NOT NULL REFERENCES roles (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    UNIQUE (user_id, role_id)
                );
                CREATE INDEX IF NOT EXISTS idx_role_assignments_user ON role_assignments (server_id, user_id)`,
		},
		{
			ID:          "permkit-003",
			Description: "Create channel_permission_overrides table",
			SQL: `
                CREATE TABLE IF NOT EXISTS channel_permission_overrides (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    channel_id TEXT NOT NULL,
                    role_id TEXT,
                    user_id TEXT,
                    allow TEXT[] NOT NULL DEFAULT '{}',
                    deny TEXT[] NOT NULL DEFAULT '{}',
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp,
                    CHECK ((role_id IS NOT NULL) <> (user_id IS NOT NULL)),
                    CHECK (NOT (allow && deny))
                );
                CREATE INDEX IF NOT EXISTS idx_overrides_channel ON channel_permission_overrides (channel_id)`,
		},
		{
			ID:          "permkit-004",
			Description: "Create permission_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS permission_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    server_id TEXT NOT NULL,
                    channel_id TEXT,
                    role_id TEXT,
                    target_user_id TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS idx_audit_server ON permission_audit_log (server_id, timestamp DESC)`,
		},
	}
}
