package permkit

import (
	"time"

	"github.com/uptrace/bun"
)

// Role is a named, ranked bundle of permission grants inside one server.
// Position is the role's rank in the server hierarchy: higher value = more
// senior. Positions carry no uniqueness guarantee; ties are broken by ID.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID       string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ServerID string `bun:"server_id,notnull"`
	Name     string `bun:"name,notnull"`
	Color    string `bun:"color"` // display only, e.g. "#FF5733"
	Position int    `bun:"position,notnull,default:0"`

	// One grant column per permission key, matching the wire shape.
	ReadMessages    bool `bun:"read_messages,notnull,default:false"`
	SendMessages    bool `bun:"send_messages,notnull,default:false"`
	ManageMessages  bool `bun:"manage_messages,notnull,default:false"`
	ManageChannels  bool `bun:"manage_channels,notnull,default:false"`
	ManageRoles     bool `bun:"manage_roles,notnull,default:false"`
	ManageServer    bool `bun:"manage_server,notnull,default:false"`
	MentionEveryone bool `bun:"mention_everyone,notnull,default:false"`
	Administrator   bool `bun:"administrator,notnull,default:false"`

	Mentionable bool `bun:"mentionable,notnull,default:false"` // display only

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Grants folds the role's grant columns into a Set, so merging the grants of
// many roles is a chain of bitwise unions.
func (r *Role) Grants() Set {
	var s Set
	if r.ReadMessages {
		s = s.Add(KeyReadMessages)
	}
	if r.SendMessages {
		s = s.Add(KeySendMessages)
	}
	if r.ManageMessages {
		s = s.Add(KeyManageMessages)
	}
	if r.ManageChannels {
		s = s.Add(KeyManageChannels)
	}
	if r.ManageRoles {
		s = s.Add(KeyManageRoles)
	}
	if r.ManageServer {
		s = s.Add(KeyManageServer)
	}
	if r.MentionEveryone {
		s = s.Add(KeyMentionEveryone)
	}
	if r.Administrator {
		s = s.Add(KeyAdministrator)
	}
	return s
}

// SetGrants writes a Set back onto the role's grant columns.
func (r *Role) SetGrants(s Set) {
	r.ReadMessages = s.Has(KeyReadMessages)
	r.SendMessages = s.Has(KeySendMessages)
	r.ManageMessages = s.Has(KeyManageMessages)
	r.ManageChannels = s.Has(KeyManageChannels)
	r.ManageRoles = s.Has(KeyManageRoles)
	r.ManageServer = s.Has(KeyManageServer)
	r.MentionEveryone = s.Has(KeyMentionEveryone)
	r.Administrator = s.Has(KeyAdministrator)
}

// RoleAssignment links one user to one role. A user may hold many roles in
// the same server; grants are additive across them.
type RoleAssignment struct {
	bun.BaseModel `bun:"table:role_assignments,alias:ra"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ServerID  string    `bun:"server_id,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	RoleID    string    `bun:"role_id,notnull,type:uuid"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ChannelPermissionOverride adjusts permissions on one channel for exactly
// one role or exactly one user. Allow and Deny hold permission key names;
// unknown names are dropped at read time and rejected at write time.
//
// An override whose target fields are both set, or both empty, is malformed.
// The write path rejects such records (ValidateOverride); the resolver
// additionally treats any that slip through as inert.
type ChannelPermissionOverride struct {
	bun.BaseModel `bun:"table:channel_permission_overrides,alias:cpo"`

	ID        string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	ChannelID string `bun:"channel_id,notnull"`

	// Target: exactly one of RoleID or UserID.
	RoleID string `bun:"role_id,nullzero"`
	UserID string `bun:"user_id,nullzero"`

	Allow []string `bun:"allow,array"`
	Deny  []string `bun:"deny,array"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// TargetsRole reports whether the override is well-formed and role-scoped.
func (o *ChannelPermissionOverride) TargetsRole() bool {
	return o.RoleID != "" && o.UserID == ""
}

// TargetsUser reports whether the override is well-formed and user-scoped.
func (o *ChannelPermissionOverride) TargetsUser() bool {
	return o.UserID != "" && o.RoleID == ""
}

// AllowSet parses the allow list, dropping unknown names.
func (o *ChannelPermissionOverride) AllowSet() Set {
	return SetFromNames(o.Allow)
}

// DenySet parses the deny list, dropping unknown names.
func (o *ChannelPermissionOverride) DenySet() Set {
	return SetFromNames(o.Deny)
}

// Effective is the resolved permission set for one (user, channel)
// evaluation. It is derived and never persisted; callers recompute it per
// check. If caching is needed, own it outside the library and key it on
// (userID, channelID, role data version, override data version).
type Effective struct {
	UserID string
	set    Set
}

// Has reports whether the evaluation granted key.
func (e Effective) Has(key Key) bool {
	return e.set.Has(key)
}

// Set returns the underlying bitset.
func (e Effective) Set() Set {
	return e.set
}

// Map expands the evaluation into the complete 8-key boolean map.
func (e Effective) Map() map[Key]bool {
	return e.set.Map()
}

// AuditAction names a mutation recorded in the audit log.
type AuditAction string

const (
	AuditRoleCreated     AuditAction = "role.created"
	AuditRoleUpdated     AuditAction = "role.updated"
	AuditRoleDeleted     AuditAction = "role.deleted"
	AuditRoleAssigned    AuditAction = "role.assigned"
	AuditRoleUnassigned  AuditAction = "role.unassigned"
	AuditOverrideSet     AuditAction = "override.set"
	AuditOverrideRemoved AuditAction = "override.removed"
)

// PermissionAuditLog records role and override mutations for compliance and
// debugging.
type PermissionAuditLog struct {
	bun.BaseModel `bun:"table:permission_audit_log,alias:pal"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	ActorID string `bun:"actor_id,notnull"`
	Action  string `bun:"action,notnull"`

	ServerID     string `bun:"server_id,notnull"`
	ChannelID    string `bun:"channel_id"`
	RoleID       string `bun:"role_id"`
	TargetUserID string `bun:"target_user_id"`

	// Request metadata for forensics.
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID      string
	Action       AuditAction
	ServerID     string
	ChannelID    string
	RoleID       string
	TargetUserID string
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
}

// ToModel converts an AuditEntry to a PermissionAuditLog model.
func (e *AuditEntry) ToModel() *PermissionAuditLog {
	return &PermissionAuditLog{
		ActorID:      e.ActorID,
		Action:       string(e.Action),
		ServerID:     e.ServerID,
		ChannelID:    e.ChannelID,
		RoleID:       e.RoleID,
		TargetUserID: e.TargetUserID,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		RequestID:    e.RequestID,
		Metadata:     e.Metadata,
		Timestamp:    time.Now(),
	}
}
