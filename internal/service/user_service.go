package service

import (
	"context"

	"istancool/internal/models"
	"istancool/internal/repository"
	"istancool/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const defaultUserListLimit = 100

type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries the optional fields of PUT /auth/me. Nil
// fields are left unchanged.
type UpdateProfileInput struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,notblank,max=100"`
	Password  *string `json:"password" validate:"omitempty,min=6,max=72"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = defaultUserListLimit
	}
	return s.userRepo.List(ctx, skip, limit)
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.userRepo.Count(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.userRepo.Delete(ctx, id)
}

// UpdateProfile applies in to user. A changed email must not belong to
// another account.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in UpdateProfileInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if email != user.Email {
			other, err := s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil && other.ID != user.ID {
				return nil, models.NewValidationError("Email already registered")
			}
			user.Email = email
		}
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.HashedPassword = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
