package service

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/internal/repository/memrepo"
)

// world wires every service to one in-memory store.
type world struct {
	store *memrepo.Store
	team  *TeamService
	unify *UnifyService
	match *MatchService
	user  *UserService
}

func newWorld(dir Directory) *world {
	s := memrepo.New()
	tx := s.Transactor()

	return &world{
		store: s,
		team:  NewTeamService(tx).WithUserRepo(s.Users()).WithTeamRepo(s.Teams()).WithDirectory(dir),
		unify: NewUnifyService(tx).WithUserRepo(s.Users()).WithTeamRepo(s.Teams()),
		match: NewMatchService().WithUserRepo(s.Users()).WithTeamRepo(s.Teams()).WithDirectory(dir),
		user:  NewUserService(tx).WithUserRepo(s.Users()).WithDirectory(dir),
	}
}

func (w *world) addUser(t *testing.T, email string, skills, prizes []string) {
	t.Helper()
	require.NoError(t, w.store.Users().Create(context.Background(), &repository.User{
		Email:  email,
		Skills: skills,
		Prizes: prizes,
	}))
}

// addTeam creates a team founded by members[0] and joins the rest directly.
func (w *world) addTeam(t *testing.T, name string, wanted []string, members ...string) {
	t.Helper()
	ctx := context.Background()

	for _, m := range members {
		if _, err := w.store.Users().Get(ctx, m); err != nil {
			w.addUser(t, m, nil, nil)
		}
	}

	_, e := w.team.CreateTeam(ctx, members[0], &model.TeamDraft{Name: name, Desc: name + " team", WantedSkills: wanted})
	require.Nil(t, e)
	for _, m := range members[1:] {
		require.Nil(t, w.team.JoinSolo(ctx, members[0], name, m))
	}
}

func (w *world) getTeam(t *testing.T, name string) *repository.Team {
	t.Helper()
	team, err := w.store.Teams().Get(context.Background(), name)
	require.NoError(t, err)
	return team
}

func (w *world) getUser(t *testing.T, email string) *repository.User {
	t.Helper()
	u, err := w.store.Users().Get(context.Background(), email)
	require.NoError(t, err)
	return u
}

// assertInvariants checks capacity, completeness, single membership and the unification relation.
func (w *world) assertInvariants(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	teams, err := w.store.Teams().Find(ctx, nil)
	require.NoError(t, err)
	users, err := w.store.Users().Find(ctx, nil)
	require.NoError(t, err)

	memberships := map[string]int{}
	byName := map[string]*repository.Team{}
	for _, team := range teams {
		byName[team.Name] = team

		assert.LessOrEqual(t, len(team.Members), model.TeamCapacity, "team %s over capacity", team.Name)
		assert.Equal(t, len(team.Members) == model.TeamCapacity, team.Complete, "team %s complete flag", team.Name)
		assert.NotContains(t, team.Interested, team.Name, "team %s interested in itself", team.Name)
		if team.Dissolved {
			assert.Empty(t, team.Members, "dissolved team %s has members", team.Name)
		}
		if team.Complete {
			assert.Empty(t, team.Interested, "complete team %s has pending invites", team.Name)
		}
		for _, m := range team.Members {
			memberships[m]++
		}
	}

	for _, team := range teams {
		for _, other := range team.Interested {
			inviter, ok := byName[other]
			if assert.True(t, ok, "unknown inviter %s", other) {
				assert.False(t, inviter.Dissolved, "dissolved inviter %s still pending", other)
				assert.NotContains(t, inviter.Interested, team.Name, "mutual pending between %s and %s", team.Name, other)
			}
		}
	}

	for _, u := range users {
		n := memberships[u.Email]
		assert.LessOrEqual(t, n, 1, "user %s in several teams", u.Email)
		assert.Equal(t, n == 1, u.HasTeam, "user %s has_team flag", u.Email)
	}
	for email := range memberships {
		assert.True(t, slices.ContainsFunc(users, func(u *repository.User) bool { return u.Email == email }),
			"member %s has no user record", email)
	}
}

type fakeDirectory struct {
	names   map[string]string
	authErr error
	readErr error
}

func (f *fakeDirectory) Authorize(context.Context) (directory.Token, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "service-token", nil
}

func (f *fakeDirectory) Validate(_ context.Context, email string, token string) error {
	if _, ok := f.names[email]; !ok || token != "valid" {
		return directory.ErrAuth
	}
	return nil
}

func (f *fakeDirectory) ResolveName(_ context.Context, _ directory.Token, email string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	name, ok := f.names[email]
	if !ok {
		return "", directory.ErrNotFound
	}
	return name, nil
}
