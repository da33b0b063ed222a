package permkit

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ROLE STORE
// ============================================================================

// ServerRoles retrieves every role of a server in hierarchy order (most
// senior first).
func (s *Service) ServerRoles(ctx context.Context, serverID string) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&roles).
		Where("server_id = ?", serverID).
		Order("position DESC").
		Order("id ASC").
		Scan(ctx), "GetServerRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// UserRoles retrieves the roles assigned to a user in a server. The result
// is the snapshot fed into ResolvePermissions and CanManageRole.
func (s *Service) UserRoles(ctx context.Context, serverID, userID string) ([]Role, error) {
	var roles []Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&roles).
		Join("JOIN role_assignments AS ra ON ra.role_id = r.id").
		Where("ra.user_id = ? AND ra.server_id = ?", userID, serverID).
		Scan(ctx), "GetUserRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRole retrieves a single role by ID.
func (s *Service) GetRole(ctx context.Context, roleID string) (*Role, error) {
	var role Role
	err := dbkit.WithErr1(s.db.NewSelect().Model(&role).
		Where("id = ?", roleID).
		Limit(1).
		Scan(ctx), "GetRole").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrRoleNotFound, "no role with this id").WithRole(roleID)
		}
		return nil, err
	}
	return &role, nil
}

// RoleMembers retrieves the user IDs assigned to a role.
func (s *Service) RoleMembers(ctx context.Context, roleID string) ([]string, error) {
	var userIDs []string
	err := dbkit.WithErr1(s.db.NewRaw(
		"SELECT user_id FROM role_assignments WHERE role_id = ?", roleID).
		Scan(ctx, &userIDs), "GetRoleMembers").Err()
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

// ============================================================================
// GATED MUTATIONS
// ============================================================================

// guardRole checks that the actor from context may manage targetRole: owner
// bypass first, then the manageRoles/administrator gate plus the strict rank
// comparison of CanManageRole. Returns the actor ID on success.
func (s *Service) guardRole(ctx context.Context, serverID string, targetRole Role) (string, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return "", NewError(ErrNoActorID, "actor ID required for role mutation").
			WithServer(serverID)
	}

	if s.isServerOwner(ctx, serverID, actorID) {
		return actorID, nil
	}

	actorRoles, err := s.UserRoles(ctx, serverID, actorID)
	if err != nil {
		return "", err
	}

	if !CanManageRole(actorRoles, targetRole, false) {
		return "", NewError(ErrCannotManageRole, "actor does not outrank this role").
			WithServer(serverID).
			WithRole(targetRole.ID).
			WithActor(actorID)
	}

	return actorID, nil
}

// CreateRole creates a role. The actor must be able to manage a role at the
// new role's position.
//
// Example:
//
//	role := &permkit.Role{ServerID: serverID, Name: "Moderator", Position: 5}
//	role.SetGrants(permkit.SetFromKeys(permkit.KeyReadMessages, permkit.KeyManageMessages))
//	err := service.CreateRole(ctx, role)
func (s *Service) CreateRole(ctx context.Context, role *Role) error {
	actorID, err := s.guardRole(ctx, role.ServerID, *role)
	if err != nil {
		return err
	}

	result, err := s.db.NewInsert().Model(role).Exec(ctx)
	err = dbkit.WithErr(result, err, "CreateRole").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to create role").
			WithServer(role.ServerID).
			WithRole(role.ID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:   actorID,
		Action:    AuditRoleCreated,
		ServerID:  role.ServerID,
		RoleID:    role.ID,
		IPAddress: audit.IPAddress,
		UserAgent: audit.UserAgent,
		RequestID: audit.RequestID,
	})

	return nil
}

// UpdateRole edits a role. The actor must outrank both the stored role and
// the updated one, so nobody can lift a role above their own rank.
func (s *Service) UpdateRole(ctx context.Context, role *Role) error {
	stored, err := s.GetRole(ctx, role.ID)
	if err != nil {
		return err
	}

	actorID, err := s.guardRole(ctx, stored.ServerID, *stored)
	if err != nil {
		return err
	}
	if role.Position != stored.Position {
		if _, err := s.guardRole(ctx, stored.ServerID, *role); err != nil {
			return err
		}
	}

	role.ServerID = stored.ServerID
	result, err := s.db.NewUpdate().Model(role).
		WherePK().
		ExcludeColumn("created_at", "updated_at").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "UpdateRole").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to update role").
			WithServer(role.ServerID).
			WithRole(role.ID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:   actorID,
		Action:    AuditRoleUpdated,
		ServerID:  role.ServerID,
		RoleID:    role.ID,
		IPAddress: audit.IPAddress,
		UserAgent: audit.UserAgent,
		RequestID: audit.RequestID,
	})

	return nil
}

// DeleteRole deletes a role together with its assignments and the channel
// overrides that target it, in one transaction.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	stored, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	actorID, err := s.guardRole(ctx, stored.ServerID, *stored)
	if err != nil {
		return err
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		result, err := s.db.NewDelete().Table("role_assignments").
			Where("role_id = ?", roleID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteRoleAssignments").Err(); err != nil {
			return err
		}

		result, err = s.db.NewDelete().Table("channel_permission_overrides").
			Where("role_id = ?", roleID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "DeleteRoleOverrides").Err(); err != nil {
			return err
		}

		result, err = s.db.NewDelete().Table("roles").
			Where("id = ?", roleID).Exec(ctx)
		return dbkit.WithErr(result, err, "DeleteRole").Err()
	})
	if err != nil {
		return NewError(ErrDatabaseError, "failed to delete role").
			WithServer(stored.ServerID).
			WithRole(roleID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:   actorID,
		Action:    AuditRoleDeleted,
		ServerID:  stored.ServerID,
		RoleID:    roleID,
		IPAddress: audit.IPAddress,
		UserAgent: audit.UserAgent,
		RequestID: audit.RequestID,
	})

	return nil
}

// AssignRole assigns a role to a user. Assignment is gated by the same rank
// rule as role edits.
//
// Example:
//
//	err := service.AssignRole(ctx, serverID, targetUserID, roleID)
func (s *Service) AssignRole(ctx context.Context, serverID, userID, roleID string) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	actorID, err := s.guardRole(ctx, serverID, *role)
	if err != nil {
		return err
	}

	exists, err := dbkit.Exists[RoleAssignment](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ? AND role_id = ?", userID, roleID)
	})
	if err != nil {
		return err
	}
	if exists {
		return NewError(ErrRoleAlreadyAssigned, "user already has this role").
			WithServer(serverID).
			WithRole(roleID).
			WithUser(userID)
	}

	assignment := &RoleAssignment{
		ServerID: serverID,
		UserID:   userID,
		RoleID:   roleID,
	}
	result, err := s.db.NewInsert().Model(assignment).Exec(ctx)
	err = dbkit.WithErr(result, err, "CreateRoleAssignment").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to create role assignment").
			WithServer(serverID).
			WithRole(roleID).
			WithUser(userID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:      actorID,
		Action:       AuditRoleAssigned,
		ServerID:     serverID,
		RoleID:       roleID,
		TargetUserID: userID,
		IPAddress:    audit.IPAddress,
		UserAgent:    audit.UserAgent,
		RequestID:    audit.RequestID,
	})

	return nil
}

// UnassignRole removes a role from a user.
func (s *Service) UnassignRole(ctx context.Context, serverID, userID, roleID string) error {
	role, err := s.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	actorID, err := s.guardRole(ctx, serverID, *role)
	if err != nil {
		return err
	}

	result, err := s.db.NewDelete().Table("role_assignments").
		Where("user_id = ? AND role_id = ?", userID, roleID).Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteRoleAssignment").Err()
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrRoleNotAssigned, "user does not have this role").
			WithServer(serverID).
			WithRole(roleID).
			WithUser(userID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:      actorID,
		Action:       AuditRoleUnassigned,
		ServerID:     serverID,
		RoleID:       roleID,
		TargetUserID: userID,
		IPAddress:    audit.IPAddress,
		UserAgent:    audit.UserAgent,
		RequestID:    audit.RequestID,
	})

	return nil
}

// CountServerRoles returns the number of roles defined in a server.
func (s *Service) CountServerRoles(ctx context.Context, serverID string) (int, error) {
	return dbkit.Count[Role](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("server_id = ?", serverID)
	})
}

// HasRole checks if a user holds a specific role. More efficient than
// UserRoles when only existence matters.
func (s *Service) HasRole(ctx context.Context, userID, roleID string) bool {
	exists, err := dbkit.Exists[RoleAssignment](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ? AND role_id = ?", userID, roleID)
	})
	if err != nil {
		return false
	}
	return exists
}
