package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// OVERRIDE STORE
// ============================================================================

// ValidateOverride enforces the override invariants at write time, so the
// resolver's defensive read-time branches stay dead in healthy data:
//
//   - exactly one of RoleID / UserID is set;
//   - every name in allow and deny is a known permission key;
//   - no key appears in both allow and deny.
func ValidateOverride(o *ChannelPermissionOverride) error {
	if o.ChannelID == "" {
		return NewError(ErrInvalidOverride, "override requires a channel")
	}

	if !o.TargetsRole() && !o.TargetsUser() {
		return NewError(ErrInvalidOverride, "override must target exactly one of role or user").
			WithChannel(o.ChannelID)
	}

	for _, name := range o.Allow {
		if _, ok := ParseKey(name); !ok {
			return NewError(ErrInvalidOverride, "unknown permission key in allow: "+name).
				WithChannel(o.ChannelID)
		}
	}
	for _, name := range o.Deny {
		if _, ok := ParseKey(name); !ok {
			return NewError(ErrInvalidOverride, "unknown permission key in deny: "+name).
				WithChannel(o.ChannelID)
		}
	}

	if conflict := o.AllowSet() & o.DenySet(); !conflict.IsEmpty() {
		return NewError(ErrInvalidOverride, "key present in both allow and deny").
			WithChannel(o.ChannelID)
	}

	return nil
}

// ChannelOverrides retrieves every override visible on a channel. The result
// is the snapshot fed into ResolvePermissions; the resolver filters out the
// entries irrelevant to the user being checked.
func (s *Service) ChannelOverrides(ctx context.Context, channelID string) ([]ChannelPermissionOverride, error) {
	var overrides []ChannelPermissionOverride
	err := dbkit.WithErr1(s.db.NewSelect().Model(&overrides).
		Where("channel_id = ?", channelID).
		Scan(ctx), "GetChannelOverrides").Err()
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// guardOverride checks that the actor from context may mutate overrides on
// this server: owner bypass, or a role grant of manageChannels or
// manageRoles. Overrides on the actor's own channel cannot weaken this gate,
// so the check merges role grants only.
func (s *Service) guardOverride(ctx context.Context, serverID string) (string, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return "", NewError(ErrNoActorID, "actor ID required for override mutation").
			WithServer(serverID)
	}

	if s.isServerOwner(ctx, serverID, actorID) {
		return actorID, nil
	}

	actorRoles, err := s.UserRoles(ctx, serverID, actorID)
	if err != nil {
		return "", err
	}

	var grants Set
	for i := range actorRoles {
		grants = grants.Union(actorRoles[i].Grants())
	}
	if !grants.Has(KeyManageChannels) && !grants.Has(KeyManageRoles) && !grants.Has(KeyAdministrator) {
		return "", NewError(ErrUnauthorized, "actor may not manage channel overrides").
			WithServer(serverID).
			WithActor(actorID)
	}

	return actorID, nil
}

// SetOverride creates or replaces the override for (channel, target). The
// override is validated before it is written; malformed records never reach
// the store.
//
// Example:
//
//	err := service.SetOverride(ctx, serverID, &permkit.ChannelPermissionOverride{
//	    ChannelID: channelID,
//	    RoleID:    modRoleID,
//	    Deny:      []string{string(permkit.KeySendMessages)},
//	})
func (s *Service) SetOverride(ctx context.Context, serverID string, override *ChannelPermissionOverride) error {
	if err := ValidateOverride(override); err != nil {
		return err
	}

	actorID, err := s.guardOverride(ctx, serverID)
	if err != nil {
		return err
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		// One override per (channel, target); replace any previous one.
		result, err := s.db.NewDelete().Table("channel_permission_overrides").
			Where("channel_id = ? AND role_id IS NOT DISTINCT FROM NULLIF(?, '') AND user_id IS NOT DISTINCT FROM NULLIF(?, '')",
				override.ChannelID, override.RoleID, override.UserID).
			Exec(ctx)
		if err := dbkit.WithErr(result, err, "ReplaceOverride").Err(); err != nil {
			return err
		}

		result, err = s.db.NewInsert().Model(override).Exec(ctx)
		return dbkit.WithErr(result, err, "CreateOverride").Err()
	})
	if err != nil {
		return NewError(ErrDatabaseError, "failed to set override").
			WithServer(serverID).
			WithChannel(override.ChannelID)
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:      actorID,
		Action:       AuditOverrideSet,
		ServerID:     serverID,
		ChannelID:    override.ChannelID,
		RoleID:       override.RoleID,
		TargetUserID: override.UserID,
		IPAddress:    audit.IPAddress,
		UserAgent:    audit.UserAgent,
		RequestID:    audit.RequestID,
	})

	return nil
}

// RemoveOverride deletes one override by ID.
func (s *Service) RemoveOverride(ctx context.Context, serverID, overrideID string) error {
	actorID, err := s.guardOverride(ctx, serverID)
	if err != nil {
		return err
	}

	var stored ChannelPermissionOverride
	err = dbkit.WithErr1(s.db.NewSelect().Model(&stored).
		Where("id = ?", overrideID).
		Limit(1).
		Scan(ctx), "GetOverride").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return NewError(ErrOverrideNotFound, "no override with this id").
				WithServer(serverID)
		}
		return err
	}

	result, err := s.db.NewDelete().Table("channel_permission_overrides").
		Where("id = ?", overrideID).Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteOverride").Err()
	if err != nil {
		return err
	}

	audit := GetAuditContext(ctx)
	_ = s.logAudit(ctx, &AuditEntry{
		ActorID:      actorID,
		Action:       AuditOverrideRemoved,
		ServerID:     serverID,
		ChannelID:    stored.ChannelID,
		RoleID:       stored.RoleID,
		TargetUserID: stored.UserID,
		IPAddress:    audit.IPAddress,
		UserAgent:    audit.UserAgent,
		RequestID:    audit.RequestID,
	})

	return nil
}

// RemoveChannelOverrides deletes every override of a channel. Hosts call
// this from their channel-deletion path so overrides cascade with their
// channel.
func (s *Service) RemoveChannelOverrides(ctx context.Context, channelID string) error {
	result, err := s.db.NewDelete().Table("channel_permission_overrides").
		Where("channel_id = ?", channelID).Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteChannelOverrides").Err()
}
