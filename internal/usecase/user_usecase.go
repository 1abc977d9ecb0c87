package usecase

import (
	"context"
	"strings"

	"petcycle/internal/domain/entity"
	"petcycle/internal/domain/repository"
	"petcycle/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{userRepo: userRepo}
}

type NicknameResult struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

func (uc *UserUseCase) Nickname(ctx context.Context, userID string) (*NicknameResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.BadRequest("User ID is required", nil)
	}
	return &NicknameResult{UserID: userID, Nickname: displayName(ctx, uc.userRepo, userID)}, nil
}

// EnsureProfile creates or updates the profile; empty fields keep their stored values.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, userID, nickname, role string) (*entity.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.BadRequest("User ID is required", nil)
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.CodeNotFound) {
			return nil, err
		}
		user = &entity.User{ID: userID}
	}
	if nickname != "" {
		user.Nickname = nickname
	}
	if role != "" {
		user.Role = role
	}

	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (uc *UserUseCase) IsAdmin(ctx context.Context, userID string) bool {
	user, err := uc.userRepo.GetByID(ctx, userID)
	return err == nil && user.IsAdmin()
}
