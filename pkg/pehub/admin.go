package pehub

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Stats returns the dashboard counters. The three counts run concurrently.
func (s *service) Stats(ctx context.Context, actor Actor) (*Stats, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}

	var stats Stats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repository.CountProfiles(gctx)
		stats.Profiles = n
		return err
	})
	g.Go(func() error {
		n, err := s.repository.CountContent(gctx)
		stats.Content = n
		return err
	})
	g.Go(func() error {
		n, err := s.repository.CountContentRequests(gctx)
		stats.ContentRequests = n
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to compute stats", "error", err)
		return nil, err
	}
	return &stats, nil
}

func (s *service) ListProfiles(ctx context.Context, actor Actor, role Role) ([]*Profile, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	profiles, err := s.repository.ListProfiles(ctx, role)
	if err != nil {
		return nil, &TransientError{Op: "list profiles", Notice: i18n.AdminsFetchError, Err: err}
	}
	return profiles, nil
}

// PromoteAdmin grants the admin role to the profile with the given email.
// When no such profile exists a placeholder profile is created with the
// admin role; created reports that case.
func (s *service) PromoteAdmin(ctx context.Context, actor Actor, email string) (*Profile, bool, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, false, err
	}
	email = normalizeEmail(email)
	if !simpleEmail.MatchString(email) {
		return nil, false, newValidationError(FieldError{Field: "email", Message: i18n.EmailInvalid})
	}

	profile, err := s.repository.GetProfileByEmail(ctx, email)
	switch {
	case err == nil:
		if profile.IsAdmin() {
			return profile, false, nil
		}
		profile.Role = RoleAdmin
		if err := s.repository.UpdateProfile(ctx, profile); err != nil {
			return nil, false, &TransientError{Op: "promote admin", Notice: i18n.AdminAddError, Err: err}
		}
		s.logger.Info("profile promoted to admin", "user_id", profile.ID, "by", actor.UserID)
		s.publish(ctx, TableProfiles, EventUpdate, profile)
		return profile, false, nil

	case errors.Is(err, ErrProfileNotFound):
		profile = &Profile{
			ID:        uuid.New(),
			Email:     email,
			Username:  strings.SplitN(email, "@", 2)[0],
			AvatarURL: avatarBaseURL + url.QueryEscape(email),
			Role:      RoleAdmin,
			CreatedAt: s.timestamp(),
		}
		if err := s.repository.CreateProfile(ctx, profile); err != nil {
			return nil, false, &TransientError{Op: "promote admin", Notice: i18n.AdminAddError, Err: err}
		}
		s.logger.Info("admin profile created", "user_id", profile.ID, "by", actor.UserID)
		s.publish(ctx, TableProfiles, EventInsert, profile)
		return profile, true, nil

	default:
		return nil, false, &TransientError{Op: "promote admin", Notice: i18n.AdminAddError, Err: err}
	}
}

// DemoteAdmin returns an admin to the user role. An admin cannot demote
// themselves.
func (s *service) DemoteAdmin(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return ErrForbidden
	}
	profile, err := s.repository.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if !profile.IsAdmin() {
		return nil
	}
	profile.Role = RoleUser
	if err := s.repository.UpdateProfile(ctx, profile); err != nil {
		return err
	}
	s.logger.Info("admin demoted", "user_id", id, "by", actor.UserID)
	s.publish(ctx, TableProfiles, EventUpdate, profile)
	return nil
}
