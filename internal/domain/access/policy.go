package access

import "soapnotes-app/internal/domain/profiles"

// CheckProfileChange is the single decision point for profile mutations.
//
//   - the billing webhook may only set the plan
//   - admins may change anything on any profile
//   - users may edit their own profile, except role and plan
func CheckProfileChange(actor Actor, targetID string, fields ...Field) Decision {
	if targetID == "" {
		return deny("no target profile")
	}
	if actor.System {
		for _, f := range fields {
			if f != FieldPlan {
				return deny("system actor may only change the plan")
			}
		}
		return allow()
	}
	if actor.UserID == "" {
		return deny("anonymous actor")
	}
	if actor.Role == profiles.RoleAdmin {
		return allow()
	}
	if actor.UserID != targetID {
		return deny("cannot modify another user's profile")
	}
	for _, f := range fields {
		if f == FieldRole || f == FieldPlan {
			return deny("cannot change own " + string(f))
		}
	}
	return allow()
}

// CanAccessNote reports whether the actor may read or modify a note.
// Notes are private to their owner; admins get no implicit access.
func CanAccessNote(actor Actor, ownerID string) bool {
	return !actor.System && actor.UserID != "" && actor.UserID == ownerID
}
