package memrepo

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teambuilder/internal/repository"
)

func TestTransactor_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, &repository.User{Email: "a@x.com"}))

	boom := errors.New("boom")
	err := s.Transactor().WithinTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, s.Users().SetHasTeam(txCtx, "a@x.com", true))
		require.NoError(t, s.Teams().Create(txCtx, &repository.Team{Name: "alpha", Members: []string{"a@x.com"}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := s.Users().Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, u.HasTeam)

	_, err = s.Teams().Get(ctx, "alpha")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTeamRepo_UpdateVersionCheck(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Teams().Create(ctx, &repository.Team{Name: "alpha", Members: []string{"a@x.com"}}))

	first, err := s.Teams().Get(ctx, "alpha")
	require.NoError(t, err)
	second, err := s.Teams().Get(ctx, "alpha")
	require.NoError(t, err)

	first.Members = append(first.Members, "b@x.com")
	require.NoError(t, s.Teams().Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Members = append(second.Members, "c@x.com")
	assert.ErrorIs(t, s.Teams().Update(ctx, second), repository.ErrConflict)

	got, err := s.Teams().Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got.Members)
}

func TestUserRepo_SetHasTeam(t *testing.T) {
	s := New()
	ctx := context.Background()

	assert.ErrorIs(t, s.Users().SetHasTeam(ctx, "ghost@x.com", true), repository.ErrNotFound)

	require.NoError(t, s.Users().Create(ctx, &repository.User{Email: "a@x.com"}))
	require.NoError(t, s.Users().SetHasTeam(ctx, "a@x.com", true))
	assert.ErrorIs(t, s.Users().SetHasTeam(ctx, "a@x.com", true), repository.ErrConflict)
}

func TestFind_Filters(t *testing.T) {
	s := New()
	ctx := context.Background()

	solo := false
	require.NoError(t, s.Users().Create(ctx, &repository.User{Email: "b@x.com", Skills: []string{"rust"}}))
	require.NoError(t, s.Users().Create(ctx, &repository.User{Email: "a@x.com", Skills: []string{"rust", "go"}}))
	require.NoError(t, s.Users().Create(ctx, &repository.User{Email: "c@x.com", Skills: []string{"rust"}, HasTeam: true}))

	users, err := s.Users().Find(ctx, &repository.UserFilter{HasTeam: &solo, Skill: "rust"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a@x.com", users[0].Email)
	assert.Equal(t, "b@x.com", users[1].Email)

	require.NoError(t, s.Teams().Create(ctx, &repository.Team{Name: "beta", Description: "Rustaceans", Members: []string{"c@x.com"}}))
	require.NoError(t, s.Teams().Create(ctx, &repository.Team{Name: "gamma", Members: []string{"d@x.com"}, Complete: true}))

	teams, err := s.Teams().Find(ctx, &repository.TeamFilter{Open: true, Search: "rust"})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "beta", teams[0].Name)
}

func TestFind_SearchIsLiteral(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Teams().Create(ctx, &repository.Team{Name: "alpha", Description: "100% rust", Members: []string{"a@x.com"}}))
	require.NoError(t, s.Teams().Create(ctx, &repository.Team{Name: "beta", Description: "1000 go", Members: []string{"b@x.com"}}))

	teams, err := s.Teams().Find(ctx, &repository.TeamFilter{Search: "0%"})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "alpha", teams[0].Name)

	teams, err = s.Teams().Find(ctx, &repository.TeamFilter{Search: "_"})
	require.NoError(t, err)
	assert.Empty(t, teams)
}
