// Package authz implements the pure authorization function described
// in the component design: a function of (actor role, actor owned
// tags, action, target) that never reads the store beyond resolving
// those inputs at the flow boundary.
package authz

import (
	"fmt"

	"placedir/internal/domain"
)

// Action names the operation being authorized.
type Action string

// The action vocabulary named by the component design.
const (
	ActionUpdatePlace    Action = "update_place"
	ActionArchivePlaces  Action = "archive_places"
	ActionArchiveRatings Action = "archive_ratings"
	ActionChangeUserRole Action = "change_user_role"
)

// Actor is the resolved identity attempting an action.
type Actor struct {
	Email     string
	Role      domain.Role
	OwnedTags []string
}

// UpdatePlaceTarget carries the facts needed to authorize UpdatePlace:
// whether the actor created the place, and the set of owned tags
// being added or removed by the edit.
type UpdatePlaceTarget struct {
	CreatedBy      string
	ChangedOwnedTags []string
}

// ChangeUserRoleTarget carries the target user's current role and the
// role being assigned.
type ChangeUserRoleTarget struct {
	CurrentRole domain.Role
	NewRole     domain.Role
}

// Authorize returns nil if actor may perform action against target,
// or a wrapped domain.ErrForbidden otherwise.
func Authorize(actor Actor, action Action, target any) error {
	switch action {
	case ActionUpdatePlace:
		t, ok := target.(UpdatePlaceTarget)
		if !ok {
			return fmt.Errorf("authz: bad target for %s", action)
		}

		return authorizeUpdatePlace(actor, t)
	case ActionArchivePlaces, ActionArchiveRatings:
		if actor.Role < domain.RoleScout {
			return fmt.Errorf("%w: %s requires role >= Scout", domain.ErrForbidden, action)
		}

		return nil
	case ActionChangeUserRole:
		t, ok := target.(ChangeUserRoleTarget)
		if !ok {
			return fmt.Errorf("authz: bad target for %s", action)
		}

		return authorizeChangeUserRole(actor, t)
	default:
		return fmt.Errorf("authz: unknown action %s", action)
	}
}

func authorizeUpdatePlace(actor Actor, t UpdatePlaceTarget) error {
	if actor.Email != "" && actor.Email == t.CreatedBy {
		return nil
	}

	if actor.Role >= domain.RoleScout {
		return nil
	}

	if ownsAll(actor.OwnedTags, t.ChangedOwnedTags) {
		return nil
	}

	return fmt.Errorf("%w: actor may not update place owned by another creator", domain.ErrForbidden)
}

// authorizeChangeUserRole implements the rule `actor.role > target.role
// && role < actor.role`, ported verbatim from change_user_role.rs.
func authorizeChangeUserRole(actor Actor, t ChangeUserRoleTarget) error {
	if actor.Role > t.CurrentRole && t.NewRole < actor.Role {
		return nil
	}

	return fmt.Errorf("%w: actor role %d cannot set role %d on target with role %d", domain.ErrForbidden, actor.Role, t.NewRole, t.CurrentRole)
}

func ownsAll(owned, needed []string) bool {
	set := map[string]bool{}
	for _, t := range owned {
		set[t] = true
	}

	for _, t := range needed {
		if !set[t] {
			return false
		}
	}

	return true
}

// StripForExport removes fields a caller of the given role is not
// entitled to see: contact fields below Scout, and owned tags below
// Admin unless the caller's own organization owns the tag.
func StripForExport(rev *domain.PlaceRevision, callerRole domain.Role, callerOwnedTags, allOwnedTags []string) {
	if callerRole < domain.RoleScout {
		rev.Contact = nil
	}

	if callerRole >= domain.RoleAdmin {
		return
	}

	owned := map[string]bool{}
	for _, t := range callerOwnedTags {
		owned[t] = true
	}

	restricted := map[string]bool{}
	for _, t := range allOwnedTags {
		restricted[t] = true
	}

	filtered := rev.Tags[:0]

	for _, tag := range rev.Tags {
		if restricted[tag] && !owned[tag] {
			continue
		}

		filtered = append(filtered, tag)
	}

	rev.Tags = filtered
}

// StripEventForExport clears CreatedBy unless the caller owns the
// event by tag intersection with its own owned tags.
func StripEventForExport(ev *domain.Event, callerOwnedTags []string) {
	owned := map[string]bool{}
	for _, t := range callerOwnedTags {
		owned[t] = true
	}

	for _, tag := range ev.Tags {
		if owned[tag] {
			return
		}
	}

	ev.CreatedBy = ""
}
