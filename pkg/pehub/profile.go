package pehub

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// EnsureProfile returns the caller's profile, creating a user profile from
// the actor's email on first sign-in.
func (s *service) EnsureProfile(ctx context.Context, actor Actor) (*Profile, error) {
	profile, err := s.callerProfile(ctx, actor)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	email := normalizeEmail(actor.Email)
	profile = &Profile{
		ID:        actor.UserID,
		Email:     email,
		Role:      RoleUser,
		CreatedAt: s.timestamp(),
	}
	if email != "" {
		profile.Username = strings.SplitN(email, "@", 2)[0]
		profile.AvatarURL = avatarBaseURL + url.QueryEscape(email)
	}
	if err := s.repository.CreateProfile(ctx, profile); err != nil {
		var cerr *ConstraintError
		if errors.As(err, &cerr) && cerr.Kind == ConstraintDuplicate {
			return s.repository.GetProfile(ctx, actor.UserID)
		}
		return nil, err
	}
	s.logger.Info("profile created", "user_id", profile.ID)
	s.publish(ctx, TableProfiles, EventInsert, profile)
	return profile, nil
}

func (s *service) GetProfile(ctx context.Context, actor Actor) (*Profile, error) {
	return s.callerProfile(ctx, actor)
}

// UpdateProfile applies the non-nil fields of req to the caller's profile.
// The role cannot be changed here.
func (s *service) UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*Profile, error) {
	profile, err := s.callerProfile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		v := SanitizeText(*req.FullName)
		req.FullName = &v
	}
	if req.Username != nil {
		v := SanitizeText(*req.Username)
		req.Username = &v
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		profile.FullName = *req.FullName
	}
	if req.Username != nil {
		profile.Username = *req.Username
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if err := s.repository.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.publish(ctx, TableProfiles, EventUpdate, profile)
	return profile, nil
}

// DeleteAccount removes the caller's content, requests and profile. Each
// step is attempted and logged on its own; the first failure is returned.
func (s *service) DeleteAccount(ctx context.Context, actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	log := s.logger.With("user_id", actor.UserID)
	var firstErr error

	if n, err := s.repository.DeleteContentByCreator(ctx, actor.UserID); err != nil {
		log.Error("failed to delete user content", "error", err)
		firstErr = err
	} else {
		log.Info("user content deleted", "count", n)
	}

	if n, err := s.repository.DeleteContentRequestsByUser(ctx, actor.UserID); err != nil {
		log.Error("failed to delete user requests", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		log.Info("user requests deleted", "count", n)
	}

	if err := s.repository.DeleteProfile(ctx, actor.UserID); err != nil && !errors.Is(err, ErrProfileNotFound) {
		log.Error("failed to delete profile", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	} else {
		log.Info("profile deleted")
	}
	return firstErr
}
