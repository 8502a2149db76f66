package service

import (
	"context"
	"errors"
	"time"

	"chatshop/pkg/domain/model"
)

var ErrUnsupportedLanguage = errors.New("language is not supported")

var SupportedLanguages = []string{"uz", "en", "tur", "ru", "ko"}

type UserService interface {
	// Register stores the user on first contact. It reports whether the user is new.
	Register(ctx context.Context, profile model.User) (*model.User, bool, error)
	UpdatePhone(ctx context.Context, userID model.UserID, phoneNumber string) error
	SetLanguage(ctx context.Context, userID model.UserID, language string) error
	IsAdmin(userID model.UserID) bool
}

func NewUserService(repo model.UserRepository, admins []model.UserID) UserService {
	set := make(map[model.UserID]struct{}, len(admins))
	for _, id := range admins {
		set[id] = struct{}{}
	}
	return &userService{repo: repo, admins: set}
}

type userService struct {
	repo   model.UserRepository
	admins map[model.UserID]struct{}
}

func (s *userService) Register(ctx context.Context, profile model.User) (*model.User, bool, error) {
	existing, err := s.repo.Find(ctx, profile.ID)
	if err == nil {
		return existing, false, nil
	}
	if !model.IsNotFound(err) {
		return nil, false, err
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:        profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		Language:  profile.Language,
		Role:      model.Customer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.IsAdmin(profile.ID) {
		user.Role = model.Admin
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *userService) UpdatePhone(ctx context.Context, userID model.UserID, phoneNumber string) error {
	return s.update(ctx, userID, func(u *model.User) { u.PhoneNumber = phoneNumber })
}

func (s *userService) SetLanguage(ctx context.Context, userID model.UserID, language string) error {
	if !isSupportedLanguage(language) {
		return ErrUnsupportedLanguage
	}
	return s.update(ctx, userID, func(u *model.User) { u.Language = language })
}

func (s *userService) IsAdmin(userID model.UserID) bool {
	_, ok := s.admins[userID]
	return ok
}

func (s *userService) update(ctx context.Context, userID model.UserID, change func(u *model.User)) error {
	user, err := s.repo.Find(ctx, userID)
	if err != nil {
		return err
	}
	change(user)
	user.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, user)
}

func isSupportedLanguage(language string) bool {
	for _, l := range SupportedLanguages {
		if l == language {
			return true
		}
	}
	return false
}
