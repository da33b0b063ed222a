package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func roleWith(id string, position int, keys ...Key) Role {
	r := Role{ID: id, ServerID: "srv_1", Name: id, Position: position}
	r.SetGrants(SetFromKeys(keys...))
	return r
}

func names(keys ...Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// TestResolveNoRoles tests that a user with no roles gets nothing
func TestResolveNoRoles(t *testing.T) {
	eff := ResolvePermissions("u1", nil, nil, false)

	for _, key := range AllKeys() {
		assert.False(t, eff.Has(key), "key %s", key)
	}
	assert.Equal(t, "u1", eff.UserID)
}

// TestResolveOwner tests the owner short circuit against contradictory overrides
func TestResolveOwner(t *testing.T) {
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", UserID: "u1", Deny: names(AllKeys()...)},
		{ID: "o2", ChannelID: "ch_1", RoleID: "r1", Deny: names(AllKeys()...)},
	}

	eff := ResolvePermissions("u1", nil, overrides, true)

	for _, key := range AllKeys() {
		assert.True(t, eff.Has(key), "key %s", key)
	}
}

// TestResolveAdministrator tests that administrator grants everything and
// skips overrides entirely
func TestResolveAdministrator(t *testing.T) {
	roles := []Role{
		roleWith("r1", 10, KeyAdministrator),
	}
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", UserID: "u1", Deny: names(KeyReadMessages, KeySendMessages)},
		{ID: "o2", ChannelID: "ch_1", RoleID: "r1", Deny: names(AllKeys()...)},
	}

	eff := ResolvePermissions("u1", roles, overrides, false)

	for _, key := range AllKeys() {
		assert.True(t, eff.Has(key), "key %s", key)
	}
}

// TestResolveRoleMerge tests the OR-merge across multiple roles
func TestResolveRoleMerge(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1, KeyReadMessages),
		roleWith("r2", 2, KeySendMessages),
		roleWith("r3", 3), // grants nothing, must not subtract
	}

	eff := ResolvePermissions("u1", roles, nil, false)

	assert.True(t, eff.Has(KeyReadMessages))
	assert.True(t, eff.Has(KeySendMessages))
	assert.False(t, eff.Has(KeyManageMessages))
	assert.False(t, eff.Has(KeyAdministrator))
}

// TestResolveRoleOverrideDeny tests a role-scoped deny stripping a merged grant
func TestResolveRoleOverrideDeny(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1, KeyReadMessages, KeySendMessages),
	}
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", RoleID: "r1", Deny: names(KeySendMessages)},
	}

	eff := ResolvePermissions("u1", roles, overrides, false)

	assert.True(t, eff.Has(KeyReadMessages))
	assert.False(t, eff.Has(KeySendMessages))
}

// TestResolveRoleOverrideAllow tests a role-scoped allow adding a key no role grants
func TestResolveRoleOverrideAllow(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1, KeyReadMessages),
	}
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", RoleID: "r1", Allow: names(KeyMentionEveryone)},
	}

	eff := ResolvePermissions("u1", roles, overrides, false)

	assert.True(t, eff.Has(KeyReadMessages))
	assert.True(t, eff.Has(KeyMentionEveryone))
}

// TestResolveUserOverrideBeatsRoleOverride tests user-scope precedence
func TestResolveUserOverrideBeatsRoleOverride(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1, KeySendMessages),
	}

	tests := []struct {
		name      string
		overrides []ChannelPermissionOverride
		expected  bool
	}{
		{
			name: "user allow beats role deny",
			overrides: []ChannelPermissionOverride{
				{ID: "o1", ChannelID: "ch_1", RoleID: "r1", Deny: names(KeySendMessages)},
				{ID: "o2", ChannelID: "ch_1", UserID: "u1", Allow: names(KeySendMessages)},
			},
			expected: true,
		},
		{
			name: "user deny beats role allow",
			overrides: []ChannelPermissionOverride{
				{ID: "o1", ChannelID: "ch_1", RoleID: "r1", Allow: names(KeySendMessages)},
				{ID: "o2", ChannelID: "ch_1", UserID: "u1", Deny: names(KeySendMessages)},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := ResolvePermissions("u1", roles, tt.overrides, false)
			assert.Equal(t, tt.expected, eff.Has(KeySendMessages))
		})
	}
}

// TestResolveSiblingRoleConflict tests that among conflicting role-scoped
// overrides the override of the more senior role wins, regardless of the
// order the overrides arrive in
func TestResolveSiblingRoleConflict(t *testing.T) {
	roles := []Role{
		roleWith("junior", 1, KeySendMessages),
		roleWith("senior", 5),
	}
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", RoleID: "senior", Allow: names(KeySendMessages)},
		{ID: "o2", ChannelID: "ch_1", RoleID: "junior", Deny: names(KeySendMessages)},
	}

	eff := ResolvePermissions("u1", roles, overrides, false)
	assert.True(t, eff.Has(KeySendMessages))

	// Reversed slice order must not change the outcome.
	reversed := []ChannelPermissionOverride{overrides[1], overrides[0]}
	eff = ResolvePermissions("u1", roles, reversed, false)
	assert.True(t, eff.Has(KeySendMessages))

	// And the senior deny wins over the junior allow the same way.
	overrides = []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", RoleID: "junior", Allow: names(KeySendMessages)},
		{ID: "o2", ChannelID: "ch_1", RoleID: "senior", Deny: names(KeySendMessages)},
	}
	eff = ResolvePermissions("u1", roles, overrides, false)
	assert.False(t, eff.Has(KeySendMessages))
}

// TestResolveDenyThenAllowWithinOverride tests a malformed override naming
// the same key in both lists
func TestResolveDenyThenAllowWithinOverride(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1),
	}
	overrides := []ChannelPermissionOverride{
		{
			ID:        "o1",
			ChannelID: "ch_1",
			RoleID:    "r1",
			Allow:     names(KeySendMessages),
			Deny:      names(KeySendMessages),
		},
	}

	eff := ResolvePermissions("u1", roles, overrides, false)
	assert.True(t, eff.Has(KeySendMessages))
}

// TestResolveInertOverrides tests that malformed or non-matching overrides
// change nothing
func TestResolveInertOverrides(t *testing.T) {
	roles := []Role{
		roleWith("r1", 1, KeyReadMessages),
	}

	tests := []struct {
		name     string
		override ChannelPermissionOverride
	}{
		{
			name:     "no target",
			override: ChannelPermissionOverride{ID: "o1", ChannelID: "ch_1", Deny: names(KeyReadMessages)},
		},
		{
			name: "both targets",
			override: ChannelPermissionOverride{
				ID: "o1", ChannelID: "ch_1", RoleID: "r1", UserID: "u1",
				Deny: names(KeyReadMessages),
			},
		},
		{
			name: "role the user does not hold",
			override: ChannelPermissionOverride{
				ID: "o1", ChannelID: "ch_1", RoleID: "other_role",
				Deny: names(KeyReadMessages),
			},
		},
		{
			name: "different user",
			override: ChannelPermissionOverride{
				ID: "o1", ChannelID: "ch_1", UserID: "u2",
				Deny: names(KeyReadMessages),
			},
		},
		{
			name: "unknown permission names",
			override: ChannelPermissionOverride{
				ID: "o1", ChannelID: "ch_1", RoleID: "r1",
				Deny: []string{"launchMissiles", "READMESSAGES"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := ResolvePermissions("u1", roles, []ChannelPermissionOverride{tt.override}, false)
			assert.True(t, eff.Has(KeyReadMessages))
			assert.False(t, eff.Has(KeySendMessages))
		})
	}
}

// TestResolveUserOverrideCannotGrantViaUnknownNames tests fail-closed parsing
// on the allow side
func TestResolveUserOverrideCannotGrantViaUnknownNames(t *testing.T) {
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", UserID: "u1", Allow: []string{"everything", "root"}},
	}

	eff := ResolvePermissions("u1", nil, overrides, false)
	for _, key := range AllKeys() {
		assert.False(t, eff.Has(key), "key %s", key)
	}
}

// TestResolveIdempotent tests that repeated evaluation over the same snapshot
// yields identical results and never mutates the inputs
func TestResolveIdempotent(t *testing.T) {
	roles := []Role{
		roleWith("r1", 2, KeyReadMessages, KeySendMessages),
		roleWith("r2", 7, KeyManageMessages),
	}
	overrides := []ChannelPermissionOverride{
		{ID: "o1", ChannelID: "ch_1", RoleID: "r1", Deny: names(KeySendMessages)},
		{ID: "o2", ChannelID: "ch_1", UserID: "u1", Allow: names(KeyMentionEveryone)},
	}

	first := ResolvePermissions("u1", roles, overrides, false)
	second := ResolvePermissions("u1", roles, overrides, false)

	assert.Equal(t, first.Map(), second.Map())
	assert.Equal(t, "r1", roles[0].ID)
	assert.Equal(t, 2, roles[0].Position)
	assert.Equal(t, names(KeySendMessages), overrides[0].Deny)
}

// TestResolveMapShape tests that the expanded map always carries all 8 keys
func TestResolveMapShape(t *testing.T) {
	eff := ResolvePermissions("u1", nil, nil, false)
	m := eff.Map()

	assert.Len(t, m, 8)
	for _, key := range AllKeys() {
		v, present := m[key]
		assert.True(t, present, "key %s", key)
		assert.False(t, v, "key %s", key)
	}
}
