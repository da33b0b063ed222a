package permkit

// Checker holds one resolved (user, channel) evaluation together with the
// role snapshot it was computed from. It is typically created by the Service
// and stored in context for use in handlers. A Checker is a snapshot: after
// a role or override edit, build a new one.
type Checker struct {
	userID    string
	serverID  string
	channelID string
	roles     []Role
	isOwner   bool
	effective Effective
}

// NewChecker resolves the supplied snapshots into a Checker.
func NewChecker(userID, serverID, channelID string, roles []Role, overrides []ChannelPermissionOverride, isOwner bool) *Checker {
	return &Checker{
		userID:    userID,
		serverID:  serverID,
		channelID: channelID,
		roles:     roles,
		isOwner:   isOwner,
		effective: ResolvePermissions(userID, roles, overrides, isOwner),
	}
}

// UserID returns the user ID this checker is for.
func (c *Checker) UserID() string {
	return c.userID
}

// ServerID returns the server the evaluation belongs to.
func (c *Checker) ServerID() string {
	return c.serverID
}

// ChannelID returns the channel the evaluation belongs to.
func (c *Checker) ChannelID() string {
	return c.channelID
}

// IsOwner reports whether the user owns the server.
func (c *Checker) IsOwner() bool {
	return c.isOwner
}

// Has reports whether the user holds key in this channel.
//
// Example:
//
//	if checker.Has(permkit.KeyManageMessages) {
//	    // user may pin and delete messages here
//	}
func (c *Checker) Has(key Key) bool {
	return c.effective.Has(key)
}

// HasAny reports whether the user holds any of the keys in this channel.
func (c *Checker) HasAny(keys ...Key) bool {
	for _, key := range keys {
		if c.effective.Has(key) {
			return true
		}
	}
	return false
}

// HasAll reports whether the user holds all of the keys in this channel.
func (c *Checker) HasAll(keys ...Key) bool {
	for _, key := range keys {
		if !c.effective.Has(key) {
			return false
		}
	}
	return true
}

// CanRead is shorthand for Has(KeyReadMessages).
func (c *Checker) CanRead() bool {
	return c.Has(KeyReadMessages)
}

// CanSend is shorthand for Has(KeySendMessages).
func (c *Checker) CanSend() bool {
	return c.Has(KeySendMessages)
}

// Effective returns the resolved evaluation.
func (c *Checker) Effective() Effective {
	return c.effective
}

// Map returns the complete 8-key boolean map, e.g. for an API response that
// drives permission toggles in a UI.
func (c *Checker) Map() map[Key]bool {
	return c.effective.Map()
}

// Roles returns the role snapshot the evaluation was computed from.
func (c *Checker) Roles() []Role {
	return c.roles
}

// CanManageRole reports whether this user may create, edit, delete or assign
// targetRole, using the cached role snapshot.
func (c *Checker) CanManageRole(targetRole Role) bool {
	return CanManageRole(c.roles, targetRole, c.isOwner)
}

// IsEmpty reports whether the user holds no roles in the server.
func (c *Checker) IsEmpty() bool {
	return len(c.roles) == 0
}
