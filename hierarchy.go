package permkit

import "sort"

// CalculateRoleHierarchy returns the roles ordered by seniority: position
// descending, most senior first. Equal positions are broken by ascending
// role ID so the order is stable across calls regardless of input order.
// The input slice is not modified.
func CalculateRoleHierarchy(roles []Role) []Role {
	ordered := make([]Role, len(roles))
	copy(ordered, roles)

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position > ordered[j].Position
		}
		return ordered[i].ID < ordered[j].ID
	})

	return ordered
}

// HighestRole returns the single most senior role, using the same ordering
// as CalculateRoleHierarchy. The second return is false for empty input.
func HighestRole(roles []Role) (*Role, bool) {
	if len(roles) == 0 {
		return nil, false
	}

	highest := roles[0]
	for _, role := range roles[1:] {
		if role.Position > highest.Position ||
			(role.Position == highest.Position && role.ID < highest.ID) {
			highest = role
		}
	}
	return &highest, true
}
