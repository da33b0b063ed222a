// Package permkit resolves a user's effective permissions inside a community
// server from role grants, a server-wide role hierarchy, and channel-scoped
// permission overrides.
//
// PermKit is split into a pure resolution core and a database-backed service
// layer. The core never performs I/O: it folds caller-supplied snapshots of
// roles and overrides into a decision, which makes it safe to call from any
// number of concurrent authorization checks without synchronization.
//
// # Core Concepts
//
// Permission Key: one of eight named capabilities (readMessages, sendMessages,
// manageMessages, manageChannels, manageRoles, manageServer, mentionEveryone,
// administrator). The key set is closed; unknown names are ignored everywhere.
//
// Role: a named, ranked bundle of permission grants. Position is the role's
// rank in the server hierarchy (higher = more senior). A user may hold many
// roles; grants are additive across roles.
//
// Channel Permission Override: a per-channel allow/deny adjustment scoped to
// exactly one role or one user. Role-scoped overrides apply in ascending
// hierarchy order (the most senior role's override wins). A user-scoped
// override beats every role-scoped override for the same key.
//
// # Resolution Order
//
//  1. Server owner: every key granted, overrides never consulted.
//  2. OR-merge of all assigned role grants.
//  3. administrator on any role: every key granted, overrides skipped.
//  4. Role-scoped overrides, least senior first; within each override deny
//     is applied before allow.
//  5. User-scoped overrides last, same deny-then-allow rule.
//
// # Basic Usage
//
//	// Pure resolution against snapshots you already hold:
//	eff := permkit.ResolvePermissions(userID, roles, overrides, isOwner)
//	if eff.Has(permkit.KeySendMessages) {
//	    // user may send in this channel
//	}
//
//	// Or let the service fetch the snapshots:
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := permkit.NewService(db,
//	    permkit.WithOwnerLookup(app.ServerOwner))
//	db.Migrate(ctx, service.Migrations())
//
//	eff, err := service.EffectivePermissions(ctx, serverID, channelID, userID)
//
// # Role Management
//
// Role mutations flow through a rank gate: an actor may create, edit, delete
// or assign a role only when owner, or when holding manageRoles (or
// administrator) AND outranking the target role. administrator satisfies the
// gate but never the rank comparison.
//
//	if permkit.CanManageRole(actorRoles, targetRole, actorIsOwner) {
//	    // actor outranks the target role
//	}
//
// # Middleware Usage
//
//	mw := permkit.NewMiddleware(service)
//
//	router.With(mw.RequirePermission(permkit.KeySendMessages,
//	    permkit.ChannelFromParam("serverID", "channelID"))).
//	    Post("/servers/{serverID}/channels/{channelID}/messages", sendHandler)
//
// # Audit Log
//
// Every role and override mutation performed through the service is logged
// with actor, action, target, and request metadata (IP, user agent, request
// ID) taken from the context.
package permkit
