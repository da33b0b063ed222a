package permkit

import "context"

// ============================================================================
// PERMISSION CHECKING
// ============================================================================

// EffectivePermissions fetches the user's role snapshot and the channel's
// override snapshot, then runs the pure resolver. Nothing is cached: every
// call reflects the stores as of this read.
//
// Example:
//
//	eff, err := service.EffectivePermissions(ctx, serverID, channelID, userID)
//	if err == nil && eff.Has(permkit.KeySendMessages) {
//	    // accept the message
//	}
func (s *Service) EffectivePermissions(ctx context.Context, serverID, channelID, userID string) (Effective, error) {
	isOwner := s.isServerOwner(ctx, serverID, userID)
	if isOwner {
		// Owners skip the snapshot reads entirely.
		return ResolvePermissions(userID, nil, nil, true), nil
	}

	roles, err := s.UserRoles(ctx, serverID, userID)
	if err != nil {
		return Effective{}, err
	}

	overrides, err := s.ChannelOverrides(ctx, channelID)
	if err != nil {
		return Effective{}, err
	}

	return ResolvePermissions(userID, roles, overrides, false), nil
}

// HasPermission checks a single key for a user in a channel. Errors fail
// closed.
//
// Example:
//
//	if service.HasPermission(ctx, serverID, channelID, userID, permkit.KeyManageMessages) {
//	    // allow the pin
//	}
func (s *Service) HasPermission(ctx context.Context, serverID, channelID, userID string, key Key) bool {
	eff, err := s.EffectivePermissions(ctx, serverID, channelID, userID)
	if err != nil {
		return false
	}
	return eff.Has(key)
}

// CanManageRole checks whether an actor may mutate the target role, using
// fresh snapshots from the store.
func (s *Service) CanManageRole(ctx context.Context, serverID, actorID, targetRoleID string) (bool, error) {
	target, err := s.GetRole(ctx, targetRoleID)
	if err != nil {
		return false, err
	}

	if s.isServerOwner(ctx, serverID, actorID) {
		return true, nil
	}

	actorRoles, err := s.UserRoles(ctx, serverID, actorID)
	if err != nil {
		return false, err
	}

	return CanManageRole(actorRoles, *target, false), nil
}

// GetChecker resolves a (user, channel) evaluation into a Checker that can
// be stored in context for handlers.
func (s *Service) GetChecker(ctx context.Context, serverID, channelID, userID string) (*Checker, error) {
	isOwner := s.isServerOwner(ctx, serverID, userID)

	roles, err := s.UserRoles(ctx, serverID, userID)
	if err != nil {
		return nil, err
	}

	overrides, err := s.ChannelOverrides(ctx, channelID)
	if err != nil {
		return nil, err
	}

	return NewChecker(userID, serverID, channelID, roles, overrides, isOwner), nil
}

// GetCheckerFromContext creates a Checker using the user ID from context.
func (s *Service) GetCheckerFromContext(ctx context.Context, serverID, channelID string) (*Checker, error) {
	userID := GetUserID(ctx)
	if userID == "" {
		return nil, ErrNoUserID
	}
	return s.GetChecker(ctx, serverID, channelID, userID)
}
