package permkit

// CanManageRole decides whether an actor may create, edit, delete or assign
// targetRole. Like the resolver it is pure and total: it folds the supplied
// snapshots and never errors.
//
// The decision has three steps:
//
//  1. The server owner may manage any role.
//  2. Otherwise the actor must hold at least one role granting manageRoles
//     or administrator. No roles at all fails here.
//  3. The actor's rank is the position of their single highest role,
//     independent of which role passed step 2. The actor must strictly
//     outrank the target: equal rank never qualifies, so a role cannot
//     manage itself or a peer.
//
// administrator satisfies the gate in step 2 but grants no exemption from
// the rank comparison: an administrator-flagged actor is still blocked from
// managing a role at or above their own rank.
func CanManageRole(actorRoles []Role, targetRole Role, actorIsOwner bool) bool {
	if actorIsOwner {
		return true
	}

	gate := false
	for i := range actorRoles {
		grants := actorRoles[i].Grants()
		if grants.Has(KeyManageRoles) || grants.Has(KeyAdministrator) {
			gate = true
			break
		}
	}
	if !gate {
		return false
	}

	highest, ok := HighestRole(actorRoles)
	if !ok {
		return false
	}

	return highest.Position > targetRole.Position
}
