package permkit

// ResolvePermissions computes the effective permissions of one user in one
// channel from a snapshot of their assigned roles, the channel's overrides,
// and server ownership. It is a pure function: total over its inputs, never
// errors, never panics, and safe for unsynchronized concurrent use.
//
// Resolution order, strictly:
//
//  1. Owner: every key granted, overrides never consulted.
//  2. OR-merge of all role grants; no roles means no grants.
//  3. administrator in the merge: every key granted, overrides skipped.
//  4. Role-scoped overrides matching the user's roles, applied in ascending
//     hierarchy order so the most senior role's override wins conflicts
//     between the user's own roles. Within each override deny is applied
//     first, then allow: a malformed override naming the same key in both
//     lists resolves to allow.
//  5. User-scoped overrides for this user, applied last with the same
//     deny-then-allow rule. They overwrite the role pass unconditionally.
//
// Overrides with an empty target, with both targets set, or scoped to a role
// the user does not hold are inert. Unknown permission names inside
// allow/deny are dropped by SetFromNames before they reach this function's
// bit operations.
func ResolvePermissions(userID string, roles []Role, overrides []ChannelPermissionOverride, isOwner bool) Effective {
	if isOwner {
		return Effective{UserID: userID, set: fullSet}
	}

	var perms Set
	for i := range roles {
		perms = perms.Union(roles[i].Grants())
	}

	if perms.Has(KeyAdministrator) {
		return Effective{UserID: userID, set: fullSet}
	}

	if len(overrides) == 0 {
		return Effective{UserID: userID, set: perms}
	}

	// Role pass: walk the hierarchy from least senior to most senior so a
	// later (more senior) override overwrites an earlier one per key.
	ordered := CalculateRoleHierarchy(roles)
	for i := len(ordered) - 1; i >= 0; i-- {
		for j := range overrides {
			o := &overrides[j]
			if !o.TargetsRole() || o.RoleID != ordered[i].ID {
				continue
			}
			perms = perms.Difference(o.DenySet()).Union(o.AllowSet())
		}
	}

	// User pass: always wins over the role pass for the same key.
	for j := range overrides {
		o := &overrides[j]
		if !o.TargetsUser() || o.UserID != userID {
			continue
		}
		perms = perms.Difference(o.DenySet()).Union(o.AllowSet())
	}

	return Effective{UserID: userID, set: perms}
}
