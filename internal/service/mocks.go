package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Get(ctx context.Context, email string) (*repository.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *repository.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Patch(ctx context.Context, patch *repository.UserPatch) (*repository.User, error) {
	args := m.Called(ctx, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.User), args.Error(1)
}

func (m *MockUserRepository) SetHasTeam(ctx context.Context, email string, hasTeam bool) error {
	args := m.Called(ctx, email, hasTeam)
	return args.Error(0)
}

func (m *MockUserRepository) AddPendingTeam(ctx context.Context, teamID string, emails []string) error {
	args := m.Called(ctx, teamID, emails)
	return args.Error(0)
}

func (m *MockUserRepository) RemovePendingTeam(ctx context.Context, teamID string, emails ...string) error {
	args := m.Called(ctx, teamID, emails)
	return args.Error(0)
}

func (m *MockUserRepository) SetPendingTeams(ctx context.Context, teamIDs []string, emails []string) error {
	args := m.Called(ctx, teamIDs, emails)
	return args.Error(0)
}

func (m *MockUserRepository) Find(ctx context.Context, filter *repository.UserFilter) ([]*repository.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.User), args.Error(1)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *repository.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) Get(ctx context.Context, name string) (*repository.Team, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) GetByMember(ctx context.Context, email string) (*repository.Team, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Team), args.Error(1)
}

func (m *MockTeamRepository) Update(ctx context.Context, team *repository.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) RemoveInterest(ctx context.Context, teamID string) error {
	args := m.Called(ctx, teamID)
	return args.Error(0)
}

func (m *MockTeamRepository) Find(ctx context.Context, filter *repository.TeamFilter) ([]*repository.Team, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Team), args.Error(1)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Authorize(ctx context.Context) (directory.Token, error) {
	args := m.Called(ctx)
	return args.Get(0).(directory.Token), args.Error(1)
}

func (m *MockDirectory) Validate(ctx context.Context, email string, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockDirectory) ResolveName(ctx context.Context, token directory.Token, email string) (string, error) {
	args := m.Called(ctx, token, email)
	return args.String(0), args.Error(1)
}
