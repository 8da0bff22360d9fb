package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/db"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

type UserService struct {
	tx db.Transactor

	users     repository.UserRepository
	directory Directory
}

func NewUserService(tx db.Transactor) *UserService {
	return &UserService{tx: tx}
}

func (u *UserService) GetProfile(ctx context.Context, email string) (*model.User, *Error) {
	l := logger.FromContext(ctx)

	user, err := u.users.Get(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("user not found", zap.String("email", email))
		return nil, NewError(ErrorCodeUserNotFound, "user not found")
	}
	if err != nil {
		l.Error("failed to get user", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get user")
	}

	res := toModelUser(user)
	res.Name = resolveNames(ctx, u.directory, []string{email})[0]
	return res, nil
}

func (u *UserService) CreateProfile(ctx context.Context, email string, patch *model.UserPatch) (*model.User, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating profile", zap.String("email", email))

	user := &repository.User{
		Email:        email,
		Skills:       model.NormalizeSet(patch.Skills),
		Prizes:       model.NormalizeSet(patch.Prizes),
		PendingTeams: []string{},
	}
	if patch.Bio != nil {
		user.Bio = *patch.Bio
	}
	if patch.Github != nil {
		user.Github = *patch.Github
	}

	err := u.users.Create(ctx, user)
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("profile already exists", zap.String("email", email))
		return nil, NewError(ErrorCodeUserExists, "profile already exists")
	}
	if err != nil {
		l.Error("failed to create profile", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create profile")
	}

	return toModelUser(user), nil
}

// UpdateProfile patches the caller's profile, creating it when missing.
// Team membership fields are never touched here.
func (u *UserService) UpdateProfile(ctx context.Context, email string, patch *model.UserPatch) (*model.User, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating profile", zap.String("email", email))

	repoPatch := &repository.UserPatch{
		Email:  email,
		Bio:    patch.Bio,
		Github: patch.Github,
	}
	if patch.Skills != nil {
		skills := model.NormalizeSet(patch.Skills)
		repoPatch.Skills = &skills
	}
	if patch.Prizes != nil {
		prizes := model.NormalizeSet(patch.Prizes)
		repoPatch.Prizes = &prizes
	}

	var updated *repository.User

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		user, err := u.users.Patch(txCtx, repoPatch)
		if errors.Is(err, repository.ErrNotFound) {
			user = &repository.User{Email: email, Skills: []string{}, Prizes: []string{}, PendingTeams: []string{}}
			if err = u.users.Create(txCtx, user); err != nil {
				return storeError(txCtx, err, "failed to create profile")
			}
			if user, err = u.users.Patch(txCtx, repoPatch); err != nil {
				return storeError(txCtx, err, "failed to update profile")
			}
		} else if err != nil {
			return storeError(txCtx, err, "failed to update profile")
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	return toModelUser(updated), nil
}

func (u *UserService) ListProfiles(ctx context.Context, filter *model.UserFilter) ([]*model.User, *Error) {
	repoFilter := &repository.UserFilter{}
	if filter != nil {
		repoFilter.HasTeam = filter.HasTeam
		repoFilter.Skill = model.NormalizeEmail(filter.Skill)
		repoFilter.Prize = model.NormalizeEmail(filter.Prize)
	}

	users, err := u.users.Find(ctx, repoFilter)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list users", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list users")
	}

	res := make([]*model.User, 0, len(users))
	for _, user := range users {
		res = append(res, toModelUser(user))
	}
	return res, nil
}

func (u *UserService) WithUserRepo(userRepo repository.UserRepository) *UserService {
	u.users = userRepo
	return u
}

func (u *UserService) WithDirectory(d Directory) *UserService {
	u.directory = d
	return u
}
