package pehub

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

func requireActor(actor Actor) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}
	return nil
}

// callerProfile loads the caller's profile.
func (s *service) callerProfile(ctx context.Context, actor Actor) (*Profile, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repository.GetProfile(ctx, actor.UserID)
}

// isAdmin decides admin authority from the profile role. The optional
// email allowlist is only compared against it.
func (s *service) isAdmin(ctx context.Context, actor Actor) (bool, error) {
	profile, err := s.callerProfile(ctx, actor)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return false, nil
		}
		return false, err
	}
	admin := profile.IsAdmin()
	if len(s.allowlist) > 0 {
		listed := s.allowlist[normalizeEmail(profile.Email)]
		if listed != admin {
			s.logger.Warn("admin allowlist disagrees with profile role",
				"user_id", profile.ID, "email", profile.Email, "role", profile.Role, "allowlisted", listed)
		}
	}
	return admin, nil
}

func (s *service) requireAdmin(ctx context.Context, actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	admin, err := s.isAdmin(ctx, actor)
	if err != nil {
		return err
	}
	if !admin {
		return ErrForbidden
	}
	return nil
}

// adminRecipient picks the profile that receives moderation and contact
// notifications.
func (s *service) adminRecipient(ctx context.Context) (uuid.UUID, error) {
	if s.adminContact != "" {
		p, err := s.repository.GetProfileByEmail(ctx, s.adminContact)
		if err == nil && p.IsAdmin() {
			return p.ID, nil
		}
		if err != nil && !errors.Is(err, ErrProfileNotFound) {
			return uuid.Nil, err
		}
		s.logger.Warn("configured admin contact is not an admin profile", "email", s.adminContact)
	}

	admins, err := s.repository.ListProfiles(ctx, RoleAdmin)
	if err != nil {
		return uuid.Nil, err
	}
	if len(admins) == 0 {
		return uuid.Nil, ErrNoAdmin
	}
	sort.SliceStable(admins, func(i, j int) bool {
		return admins[i].CreatedAt.Before(admins[j].CreatedAt)
	})
	return admins[0].ID, nil
}

func (s *service) IsAdmin(ctx context.Context, actor Actor) (bool, error) {
	if err := requireActor(actor); err != nil {
		return false, err
	}
	return s.isAdmin(ctx, actor)
}
