package pehub_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
)

func TestStats(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	submitRequest(t, env, "a")
	cr := submitRequest(t, env, "b")
	_, err := env.svc.ApproveContentRequest(ctx, env.admin, cr.ID)
	require.NoError(t, err)

	stats, err := env.svc.Stats(ctx, env.admin)
	require.NoError(t, err)
	assert.Equal(t, pehub.Stats{Profiles: 2, Content: 1, ContentRequests: 2}, *stats)

	_, err = env.svc.Stats(ctx, env.user)
	assert.ErrorIs(t, err, pehub.ErrForbidden)

	env.repo.countErr = errors.New("count failed")
	_, err = env.svc.Stats(ctx, env.admin)
	assert.Error(t, err)
}

func TestPromoteAdmin(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	t.Run("existing user", func(t *testing.T) {
		p, created, err := env.svc.PromoteAdmin(ctx, env.admin, "  Teacher@PEHub.example ")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, env.user.UserID, p.ID)
		assert.Equal(t, pehub.RoleAdmin, p.Role)

		admin, err := env.svc.IsAdmin(ctx, env.user)
		require.NoError(t, err)
		assert.True(t, admin)
	})

	t.Run("unknown email creates profile", func(t *testing.T) {
		p, created, err := env.svc.PromoteAdmin(ctx, env.admin, "coach@school.example")
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "coach", p.Username)
		assert.True(t, strings.HasPrefix(p.AvatarURL, "https://api.dicebear.com/"))
		assert.Equal(t, pehub.RoleAdmin, p.Role)

		admins, err := env.svc.ListProfiles(ctx, env.admin, pehub.RoleAdmin)
		require.NoError(t, err)
		assert.Len(t, admins, 3)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, _, err := env.svc.PromoteAdmin(ctx, env.admin, "coach")
		var verr *pehub.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, i18n.EmailInvalid, verr.First())
	})

	t.Run("non admin", func(t *testing.T) {
		outsider := pehub.Actor{UserID: uuid.New()}
		_, _, err := env.svc.PromoteAdmin(ctx, outsider, "x@y.example")
		assert.ErrorIs(t, err, pehub.ErrForbidden)
	})
}

func TestDemoteAdmin(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	_, _, err := env.svc.PromoteAdmin(ctx, env.admin, env.user.Email)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.DemoteAdmin(ctx, env.admin, env.admin.UserID), pehub.ErrForbidden)

	require.NoError(t, env.svc.DemoteAdmin(ctx, env.admin, env.user.UserID))
	admin, err := env.svc.IsAdmin(ctx, env.user)
	require.NoError(t, err)
	assert.False(t, admin)

	// Demoting a plain user is a no-op.
	require.NoError(t, env.svc.DemoteAdmin(ctx, env.admin, env.user.UserID))
	assert.ErrorIs(t, env.svc.DemoteAdmin(ctx, env.admin, uuid.New()), pehub.ErrProfileNotFound)
}

func TestIsAdmin_RoleIsAuthoritative(t *testing.T) {
	// The allowlist names the user but not the admin; only the role counts.
	env := setupService(t, pehub.WithAdminAllowlist("teacher@pehub.example"))
	ctx := context.Background()

	admin, err := env.svc.IsAdmin(ctx, env.admin)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = env.svc.IsAdmin(ctx, env.user)
	require.NoError(t, err)
	assert.False(t, admin)

	admin, err = env.svc.IsAdmin(ctx, pehub.Actor{UserID: uuid.New()})
	require.NoError(t, err)
	assert.False(t, admin, "missing profile is not an admin")

	_, err = env.svc.IsAdmin(ctx, pehub.Actor{})
	assert.ErrorIs(t, err, pehub.ErrUnauthenticated)
}

func TestEnsureProfile(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	newcomer := pehub.Actor{UserID: uuid.New(), Email: "New.Teacher@School.example"}

	p, err := env.svc.EnsureProfile(ctx, newcomer)
	require.NoError(t, err)
	assert.Equal(t, newcomer.UserID, p.ID)
	assert.Equal(t, "new.teacher@school.example", p.Email)
	assert.Equal(t, "new.teacher", p.Username)
	assert.Equal(t, pehub.RoleUser, p.Role)

	again, err := env.svc.EnsureProfile(ctx, newcomer)
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)
}

func TestUpdateProfile(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	name := "<b>أحمد علي</b>"
	avatar := "https://cdn.example/avatar.png"

	p, err := env.svc.UpdateProfile(ctx, env.user, pehub.UpdateProfileRequest{FullName: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "أحمد علي", p.FullName)
	assert.Equal(t, avatar, p.AvatarURL)
	assert.Equal(t, pehub.RoleUser, p.Role)

	bad := "not a url"
	_, err = env.svc.UpdateProfile(ctx, env.user, pehub.UpdateProfileRequest{AvatarURL: &bad})
	var verr *pehub.ValidationError
	assert.True(t, errors.As(err, &verr))

	got, err := env.svc.GetProfile(ctx, env.user)
	require.NoError(t, err)
	assert.Equal(t, avatar, got.AvatarURL)
}

func TestDeleteAccount(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()
	cr := submitRequest(t, env, "mine")
	_, err := env.svc.ApproveContentRequest(ctx, env.admin, cr.ID)
	require.NoError(t, err)
	submitRequest(t, env, "pending")

	require.NoError(t, env.svc.DeleteAccount(ctx, env.user))

	_, err = env.svc.GetProfile(ctx, env.user)
	assert.ErrorIs(t, err, pehub.ErrProfileNotFound)
	count, err := env.repo.CountContent(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	count, err = env.repo.CountContentRequests(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// A second run has nothing left to remove and still succeeds.
	require.NoError(t, env.svc.DeleteAccount(ctx, env.user))
}
