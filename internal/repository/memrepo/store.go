// Package memrepo is an in-memory implementation of the repository contracts.
// It backs service tests and local runs without Postgres.
package memrepo

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/yakoovad/teambuilder/internal/db"
	"github.com/yakoovad/teambuilder/internal/repository"
)

type txKey struct{}

// Store holds users and teams. Transactions serialize on a single lock and
// restore a snapshot when the transaction function fails.
type Store struct {
	mu    sync.Mutex
	users map[string]*repository.User
	teams map[string]*repository.Team
}

func New() *Store {
	return &Store{
		users: make(map[string]*repository.User),
		teams: make(map[string]*repository.Team),
	}
}

func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

func (s *Store) Teams() repository.TeamRepository { return &teamRepo{s: s} }

func (s *Store) Transactor() db.Transactor { return &transactor{s: s} }

// lock acquires the store lock unless ctx already runs inside one of its transactions.
func (s *Store) lock(ctx context.Context) func() {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type transactor struct {
	s *Store
}

func (t *transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, ok := ctx.Value(txKey{}).(*Store); ok && owner == t.s {
		return fn(ctx)
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	users := make(map[string]*repository.User, len(t.s.users))
	for k, v := range t.s.users {
		users[k] = copyUser(v)
	}
	teams := make(map[string]*repository.Team, len(t.s.teams))
	for k, v := range t.s.teams {
		teams[k] = copyTeam(v)
	}

	if err := fn(context.WithValue(ctx, txKey{}, t.s)); err != nil {
		t.s.users = users
		t.s.teams = teams
		return err
	}
	return nil
}

type userRepo struct {
	s *Store
}

func (r *userRepo) Get(ctx context.Context, email string) (*repository.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (r *userRepo) Create(ctx context.Context, user *repository.User) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.users[user.Email]; ok {
		return repository.ErrAlreadyExists
	}
	r.s.users[user.Email] = copyUser(user)
	return nil
}

func (r *userRepo) Patch(ctx context.Context, patch *repository.UserPatch) (*repository.User, error) {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[patch.Email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Skills != nil {
		u.Skills = slices.Clone(*patch.Skills)
	}
	if patch.Prizes != nil {
		u.Prizes = slices.Clone(*patch.Prizes)
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.Github != nil {
		u.Github = *patch.Github
	}
	return copyUser(u), nil
}

func (r *userRepo) SetHasTeam(ctx context.Context, email string, hasTeam bool) error {
	defer r.s.lock(ctx)()

	u, ok := r.s.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	if u.HasTeam == hasTeam {
		return repository.ErrConflict
	}
	u.HasTeam = hasTeam
	return nil
}

func (r *userRepo) AddPendingTeam(ctx context.Context, teamID string, emails []string) error {
	defer r.s.lock(ctx)()

	for _, email := range emails {
		if u, ok := r.s.users[email]; ok && !slices.Contains(u.PendingTeams, teamID) {
			u.PendingTeams = append(u.PendingTeams, teamID)
		}
	}
	return nil
}

func (r *userRepo) RemovePendingTeam(ctx context.Context, teamID string, emails ...string) error {
	defer r.s.lock(ctx)()

	for email, u := range r.s.users {
		if len(emails) > 0 && !slices.Contains(emails, email) {
			continue
		}
		u.PendingTeams = slices.DeleteFunc(u.PendingTeams, func(id string) bool { return id == teamID })
	}
	return nil
}

func (r *userRepo) SetPendingTeams(ctx context.Context, teamIDs []string, emails []string) error {
	defer r.s.lock(ctx)()

	for _, email := range emails {
		if u, ok := r.s.users[email]; ok {
			u.PendingTeams = slices.Clone(teamIDs)
		}
	}
	return nil
}

func (r *userRepo) Find(ctx context.Context, filter *repository.UserFilter) ([]*repository.User, error) {
	defer r.s.lock(ctx)()

	out := make([]*repository.User, 0)
	for _, u := range r.s.users {
		if filter != nil {
			if filter.HasTeam != nil && u.HasTeam != *filter.HasTeam {
				continue
			}
			if filter.Skill != "" && !slices.Contains(u.Skills, filter.Skill) {
				continue
			}
			if filter.Prize != "" && !slices.Contains(u.Prizes, filter.Prize) {
				continue
			}
		}
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

type teamRepo struct {
	s *Store
}

func (r *teamRepo) Create(ctx context.Context, team *repository.Team) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.teams[team.Name]; ok {
		return repository.ErrAlreadyExists
	}
	if team.Version == 0 {
		team.Version = 1
	}
	r.s.teams[team.Name] = copyTeam(team)
	return nil
}

func (r *teamRepo) Get(ctx context.Context, name string) (*repository.Team, error) {
	defer r.s.lock(ctx)()

	t, ok := r.s.teams[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTeam(t), nil
}

func (r *teamRepo) GetByMember(ctx context.Context, email string) (*repository.Team, error) {
	defer r.s.lock(ctx)()

	for _, t := range r.s.teams {
		if !t.Dissolved && slices.Contains(t.Members, email) {
			return copyTeam(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *teamRepo) Update(ctx context.Context, team *repository.Team) error {
	defer r.s.lock(ctx)()

	cur, ok := r.s.teams[team.Name]
	if !ok || cur.Version != team.Version {
		return repository.ErrConflict
	}
	team.Version++
	r.s.teams[team.Name] = copyTeam(team)
	return nil
}

func (r *teamRepo) RemoveInterest(ctx context.Context, teamID string) error {
	defer r.s.lock(ctx)()

	for _, t := range r.s.teams {
		if slices.Contains(t.Interested, teamID) {
			t.Interested = slices.DeleteFunc(t.Interested, func(id string) bool { return id == teamID })
			t.Version++
		}
	}
	return nil
}

func (r *teamRepo) Find(ctx context.Context, filter *repository.TeamFilter) ([]*repository.Team, error) {
	defer r.s.lock(ctx)()

	out := make([]*repository.Team, 0)
	for _, t := range r.s.teams {
		if filter != nil && !matchTeam(t, filter) {
			continue
		}
		out = append(out, copyTeam(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchTeam(t *repository.Team, f *repository.TeamFilter) bool {
	if f.Open && (t.Complete || t.Dissolved) {
		return false
	}
	if f.WantedSkill != "" && !slices.Contains(t.WantedSkills, f.WantedSkill) {
		return false
	}
	if f.Prize != "" && !slices.Contains(t.Prizes, f.Prize) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		hay := strings.ToLower(strings.Join([]string{
			t.Name, t.Description, strings.Join(t.WantedSkills, " "), strings.Join(t.Prizes, " "),
		}, "\n"))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func copyUser(u *repository.User) *repository.User {
	c := *u
	c.Skills = slices.Clone(u.Skills)
	c.Prizes = slices.Clone(u.Prizes)
	c.PendingTeams = slices.Clone(u.PendingTeams)
	return &c
}

func copyTeam(t *repository.Team) *repository.Team {
	c := *t
	c.Members = slices.Clone(t.Members)
	c.WantedSkills = slices.Clone(t.WantedSkills)
	c.Prizes = slices.Clone(t.Prizes)
	c.Interested = slices.Clone(t.Interested)
	return &c
}
