package permkit

// Key identifies one of the eight permission capabilities. The key set is
// closed: strings that do not name one of the constants below are ignored by
// every consumer rather than creating a phantom permission.
type Key string

const (
	KeyReadMessages    Key = "readMessages"
	KeySendMessages    Key = "sendMessages"
	KeyManageMessages  Key = "manageMessages"
	KeyManageChannels  Key = "manageChannels"
	KeyManageRoles     Key = "manageRoles"
	KeyManageServer    Key = "manageServer"
	KeyMentionEveryone Key = "mentionEveryone"
	KeyAdministrator   Key = "administrator"
)

// allKeys fixes the catalog order. AllKeys and Effective.Map follow it.
var allKeys = [8]Key{
	KeyReadMessages,
	KeySendMessages,
	KeyManageMessages,
	KeyManageChannels,
	KeyManageRoles,
	KeyManageServer,
	KeyMentionEveryone,
	KeyAdministrator,
}

// keyBits maps each key to its bit in a Set. Unknown keys map to the zero
// Set, so adding or removing them is a no-op.
var keyBits = map[Key]Set{
	KeyReadMessages:    1 << 0,
	KeySendMessages:    1 << 1,
	KeyManageMessages:  1 << 2,
	KeyManageChannels:  1 << 3,
	KeyManageRoles:     1 << 4,
	KeyManageServer:    1 << 5,
	KeyMentionEveryone: 1 << 6,
	KeyAdministrator:   1 << 7,
}

var keyDescriptions = map[Key]string{
	KeyReadMessages:    "Read messages in text channels",
	KeySendMessages:    "Send messages in text channels",
	KeyManageMessages:  "Delete or pin messages of other members",
	KeyManageChannels:  "Create, edit and delete channels",
	KeyManageRoles:     "Create, edit, delete and assign roles below their own",
	KeyManageServer:    "Change server name, icon and settings",
	KeyMentionEveryone: "Mention @everyone and all roles",
	KeyAdministrator:   "All permissions, not overridable per channel",
}

// AllKeys returns the eight permission keys in catalog order.
func AllKeys() []Key {
	keys := make([]Key, len(allKeys))
	copy(keys, allKeys[:])
	return keys
}

// Description returns a human-readable description of a key for UI display.
// Unknown keys return the empty string.
func Description(key Key) string {
	return keyDescriptions[key]
}

// ParseKey reports whether s names one of the eight permission keys.
func ParseKey(s string) (Key, bool) {
	key := Key(s)
	_, ok := keyBits[key]
	return key, ok
}

// Set is a bitset over the eight permission keys. The zero value grants
// nothing. Being a small value type, Sets are combined with plain bitwise
// operations: the role OR-merge is a single Union per role.
type Set uint8

// fullSet has every key granted. Returned for owners and administrators.
const fullSet = Set(1<<len(allKeys) - 1)

// Has reports whether the set grants key.
func (s Set) Has(key Key) bool {
	return s&keyBits[key] != 0
}

// Add returns s with key granted. Unknown keys are a no-op.
func (s Set) Add(key Key) Set {
	return s | keyBits[key]
}

// Remove returns s with key revoked. Unknown keys are a no-op.
func (s Set) Remove(key Key) Set {
	return s &^ keyBits[key]
}

// Union returns the keys granted by either set.
func (s Set) Union(other Set) Set {
	return s | other
}

// Difference returns the keys granted by s and not by other.
func (s Set) Difference(other Set) Set {
	return s &^ other
}

// IsEmpty reports whether the set grants nothing.
func (s Set) IsEmpty() bool {
	return s == 0
}

// Keys returns the granted keys in catalog order.
func (s Set) Keys() []Key {
	var keys []Key
	for _, key := range allKeys {
		if s.Has(key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// Map expands the set into the complete 8-key boolean map.
func (s Set) Map() map[Key]bool {
	m := make(map[Key]bool, len(allKeys))
	for _, key := range allKeys {
		m[key] = s.Has(key)
	}
	return m
}

// SetFromKeys builds a Set from keys. Unknown keys are dropped.
func SetFromKeys(keys ...Key) Set {
	var s Set
	for _, key := range keys {
		s = s.Add(key)
	}
	return s
}

// SetFromNames builds a Set from permission names as they appear on the wire
// (override allow/deny lists). Names that do not parse are dropped; they
// never error and never grant anything.
func SetFromNames(names []string) Set {
	var s Set
	for _, name := range names {
		if key, ok := ParseKey(name); ok {
			s = s.Add(key)
		}
	}
	return s
}
