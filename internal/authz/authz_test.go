package authz_test

import (
	"testing"

	"placedir/internal/authz"
	"placedir/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestAuthorizeUpdatePlaceCreator(t *testing.T) {
	actor := authz.Actor{Email: "alice@example.com", Role: domain.RoleUser}
	target := authz.UpdatePlaceTarget{CreatedBy: "alice@example.com"}

	require.NoError(t, authz.Authorize(actor, authz.ActionUpdatePlace, target))
}

func TestAuthorizeUpdatePlaceScoutOverride(t *testing.T) {
	actor := authz.Actor{Email: "scout@example.com", Role: domain.RoleScout}
	target := authz.UpdatePlaceTarget{CreatedBy: "someone-else@example.com"}

	require.NoError(t, authz.Authorize(actor, authz.ActionUpdatePlace, target))
}

func TestAuthorizeUpdatePlaceByOwnedTags(t *testing.T) {
	actor := authz.Actor{Email: "org@example.com", Role: domain.RoleUser, OwnedTags: []string{"museum", "park"}}
	target := authz.UpdatePlaceTarget{CreatedBy: "someone-else@example.com", ChangedOwnedTags: []string{"museum"}}

	require.NoError(t, authz.Authorize(actor, authz.ActionUpdatePlace, target))
}

func TestAuthorizeUpdatePlaceDeniedWithoutOwnership(t *testing.T) {
	actor := authz.Actor{Email: "user@example.com", Role: domain.RoleUser}
	target := authz.UpdatePlaceTarget{CreatedBy: "someone-else@example.com", ChangedOwnedTags: []string{"museum"}}

	err := authz.Authorize(actor, authz.ActionUpdatePlace, target)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAuthorizeArchiveRequiresScout(t *testing.T) {
	require.ErrorIs(t,
		authz.Authorize(authz.Actor{Role: domain.RoleUser}, authz.ActionArchivePlaces, nil),
		domain.ErrForbidden)

	require.NoError(t,
		authz.Authorize(authz.Actor{Role: domain.RoleScout}, authz.ActionArchivePlaces, nil))

	require.NoError(t,
		authz.Authorize(authz.Actor{Role: domain.RoleAdmin}, authz.ActionArchiveRatings, nil))
}

func TestAuthorizeChangeUserRole(t *testing.T) {
	admin := authz.Actor{Role: domain.RoleAdmin}

	require.NoError(t, authz.Authorize(admin, authz.ActionChangeUserRole, authz.ChangeUserRoleTarget{
		CurrentRole: domain.RoleUser,
		NewRole:     domain.RoleScout,
	}))

	err := authz.Authorize(admin, authz.ActionChangeUserRole, authz.ChangeUserRoleTarget{
		CurrentRole: domain.RoleUser,
		NewRole:     domain.RoleAdmin,
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	scout := authz.Actor{Role: domain.RoleScout}
	err = authz.Authorize(scout, authz.ActionChangeUserRole, authz.ChangeUserRoleTarget{
		CurrentRole: domain.RoleScout,
		NewRole:     domain.RoleUser,
	})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAuthorizeUnknownActionTarget(t *testing.T) {
	require.Error(t, authz.Authorize(authz.Actor{}, authz.ActionUpdatePlace, "not-a-target"))
	require.Error(t, authz.Authorize(authz.Actor{}, "bogus-action", nil))
}

func TestStripForExportRemovesContactBelowScout(t *testing.T) {
	rev := &domain.PlaceRevision{
		Contact: &domain.Contact{Email: "owner@example.com"},
		Tags:    []string{"public", "museum"},
	}

	authz.StripForExport(rev, domain.RoleUser, nil, []string{"museum"})

	require.Nil(t, rev.Contact)
	require.Equal(t, []string{"public"}, rev.Tags)
}

func TestStripForExportKeepsOwnedRestrictedTag(t *testing.T) {
	rev := &domain.PlaceRevision{
		Contact: &domain.Contact{Email: "owner@example.com"},
		Tags:    []string{"public", "museum"},
	}

	authz.StripForExport(rev, domain.RoleScout, []string{"museum"}, []string{"museum"})

	require.NotNil(t, rev.Contact)
	require.ElementsMatch(t, []string{"public", "museum"}, rev.Tags)
}

func TestStripForExportAdminSeesEverything(t *testing.T) {
	rev := &domain.PlaceRevision{
		Contact: &domain.Contact{Email: "owner@example.com"},
		Tags:    []string{"public", "museum"},
	}

	authz.StripForExport(rev, domain.RoleAdmin, nil, []string{"museum"})

	require.NotNil(t, rev.Contact)
	require.ElementsMatch(t, []string{"public", "museum"}, rev.Tags)
}

func TestStripEventForExport(t *testing.T) {
	ev := &domain.Event{CreatedBy: "alice@example.com", Tags: []string{"museum"}}

	authz.StripEventForExport(ev, []string{"museum"})
	require.Equal(t, "alice@example.com", ev.CreatedBy)

	ev2 := &domain.Event{CreatedBy: "alice@example.com", Tags: []string{"museum"}}
	authz.StripEventForExport(ev2, []string{"park"})
	require.Empty(t, ev2.CreatedBy)
}
