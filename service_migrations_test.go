package permkit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMigrations tests the shape of the migration set
func TestMigrations(t *testing.T) {
	s := NewService(nil)
	migrations := s.Migrations()

	require.Len(t, migrations, 4)

	seen := map[string]bool{}
	for _, m := range migrations {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
		assert.False(t, seen[m.ID], "duplicate migration ID %s", m.ID)
		seen[m.ID] = true
	}

	assert.True(t, seen["permkit-001"])
	assert.True(t, seen["permkit-004"])
}

// TestMigrationsCoverModels tests that every model table has a migration
func TestMigrationsCoverModels(t *testing.T) {
	s := NewService(nil)

	all := ""
	for _, m := range s.Migrations() {
		all += m.SQL
	}

	for _, table := range []string{
		"roles",
		"role_assignments",
		"channel_permission_overrides",
		"permission_audit_log",
	} {
		assert.True(t, strings.Contains(all, table), "missing table %s", table)
	}

	// One grant column per permission key.
	for _, column := range []string{
		"read_messages",
		"send_messages",
		"manage_messages",
		"manage_channels",
		"manage_roles",
		"manage_server",
		"mention_everyone",
		"administrator",
	} {
		assert.True(t, strings.Contains(all, column), "missing grant column %s", column)
	}
}
