package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/db"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

type TeamService struct {
	tx db.Transactor

	users     repository.UserRepository
	teams     repository.TeamRepository
	directory Directory
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx: tx,
	}
}

// CreateTeam starts a team with founder as its only member. A founder without a
// profile gets an empty one, provided the directory knows them.
func (t *TeamService) CreateTeam(ctx context.Context, founder string, draft *model.TeamDraft) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		l.Warn("empty team name", zap.String("founder", founder))
		return nil, NewError(ErrorCodeInvalidBody, "team_name is required")
	}

	l.Info("creating team", zap.String("team_name", name), zap.String("founder", founder))

	_, err := t.users.Get(ctx, founder)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if e := checkAccount(ctx, t.directory, founder); e != nil {
			return nil, e
		}
	case err != nil:
		l.Error("failed to get founder", zap.String("email", founder), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get user")
	}

	created := &repository.Team{
		Name:         name,
		Members:      []string{founder},
		Description:  draft.Desc,
		WantedSkills: model.NormalizeSet(draft.WantedSkills),
		Prizes:       model.NormalizeSet(draft.Prizes),
	}

	err = t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		user, err := t.users.Get(txCtx, founder)
		if errors.Is(err, repository.ErrNotFound) {
			user = &repository.User{Email: founder, Skills: []string{}, Prizes: []string{}}
			if err = t.users.Create(txCtx, user); err != nil {
				return storeError(txCtx, err, "failed to create founder profile")
			}
		} else if err != nil {
			l.Error("failed to get founder", zap.String("email", founder), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get user")
		}

		// Retired names stay reserved, so any existing record blocks the name.
		_, err = t.teams.Get(txCtx, name)
		if err == nil {
			l.Warn("team already exists", zap.String("team_name", name))
			return NewError(ErrorCodeTeamExists, "team_name already exists")
		}
		if !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to get team", zap.String("team_name", name), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get team")
		}

		if user.HasTeam {
			l.Warn("founder already in a team", zap.String("email", founder))
			return NewError(ErrorCodeUserInTeam, "user in a team")
		}

		err = t.teams.Create(txCtx, created)
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("team already exists", zap.String("team_name", name))
			return NewError(ErrorCodeTeamExists, "team_name already exists")
		}
		if err != nil {
			l.Error("failed to create team", zap.String("team_name", name), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create team")
		}

		err = t.users.SetHasTeam(txCtx, founder, true)
		if errors.Is(err, repository.ErrConflict) {
			l.Warn("founder joined another team concurrently", zap.String("email", founder))
			return NewError(ErrorCodeUserInTeam, "user in a team")
		}
		if err != nil {
			return storeError(txCtx, err, "failed to mark founder")
		}

		// A fresh team has no invites, so nothing is pending for the founder.
		if err = t.users.SetPendingTeams(txCtx, nil, []string{founder}); err != nil {
			return storeError(txCtx, err, "failed to reset pending teams")
		}

		l.Debug("team created successfully", zap.String("team_name", name))
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	return toModelTeam(created), nil
}

// JoinSolo adds an unaffiliated user directly to the caller's team.
func (t *TeamService) JoinSolo(ctx context.Context, caller, teamID, candidate string) *Error {
	l := logger.FromContext(ctx)
	l.Info("adding member",
		zap.String("team_name", teamID),
		zap.String("caller", caller),
		zap.String("candidate", candidate))

	if e := checkAccount(ctx, t.directory, candidate); e != nil {
		return e
	}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, e := loadLiveTeam(txCtx, t.teams, teamID)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, team, caller); e != nil {
			return e
		}
		if team.Complete || len(team.Members) >= model.TeamCapacity {
			l.Warn("team complete", zap.String("team_name", teamID))
			return NewError(ErrorCodeTeamFull, "team complete")
		}

		user, err := t.users.Get(txCtx, candidate)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			user = &repository.User{Email: candidate, Skills: []string{}, Prizes: []string{}}
			if err = t.users.Create(txCtx, user); err != nil {
				return storeError(txCtx, err, "failed to create candidate profile")
			}
		case err != nil:
			l.Error("failed to get candidate", zap.String("email", candidate), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to get user")
		}

		if user.HasTeam {
			l.Warn("candidate already in a team", zap.String("email", candidate))
			return NewError(ErrorCodeUserInTeam, "partner in a team")
		}

		err = t.users.SetHasTeam(txCtx, candidate, true)
		if errors.Is(err, repository.ErrConflict) {
			return NewError(ErrorCodeUserInTeam, "partner in a team")
		}
		if err != nil {
			return storeError(txCtx, err, "failed to mark candidate")
		}

		team.Members = append(team.Members, candidate)
		team.Complete = len(team.Members) == model.TeamCapacity
		if team.Complete {
			team.Interested = nil
		}

		if err = t.teams.Update(txCtx, team); err != nil {
			return storeError(txCtx, err, "failed to update team")
		}

		if team.Complete {
			if err = retireInvites(txCtx, t.users, t.teams, team.Name, team.Members); err != nil {
				return storeError(txCtx, err, "failed to retire invites")
			}
		} else if err = t.users.SetPendingTeams(txCtx, team.Interested, []string{candidate}); err != nil {
			return storeError(txCtx, err, "failed to set pending teams")
		}

		l.Debug("member added successfully", zap.String("team_name", teamID), zap.Int("size", len(team.Members)))
		return nil
	})

	return asError(err)
}

// LeaveTeam removes caller from the team. A team left empty is retired: its
// record stays, flagged dissolved, and its name is never handed out again.
func (t *TeamService) LeaveTeam(ctx context.Context, caller, teamID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("leaving team", zap.String("team_name", teamID), zap.String("email", caller))

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, e := loadLiveTeam(txCtx, t.teams, teamID)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, team, caller); e != nil {
			return e
		}

		team.Members = without(team.Members, caller)
		team.Complete = false
		if len(team.Members) == 0 {
			team.Dissolved = true
			team.Interested = nil
		}

		if err := t.teams.Update(txCtx, team); err != nil {
			return storeError(txCtx, err, "failed to update team")
		}

		if err := t.users.SetHasTeam(txCtx, caller, false); err != nil {
			return storeError(txCtx, err, "failed to unmark member")
		}
		if err := t.users.SetPendingTeams(txCtx, nil, []string{caller}); err != nil {
			return storeError(txCtx, err, "failed to clear pending teams")
		}

		if team.Dissolved {
			if err := retireInvites(txCtx, t.users, t.teams, team.Name, nil); err != nil {
				return storeError(txCtx, err, "failed to retire invites")
			}
			l.Info("team retired", zap.String("team_name", teamID))
		}

		return nil
	})

	return asError(err)
}

// GetTeam returns the caller's team with member display names.
func (t *TeamService) GetTeam(ctx context.Context, caller, teamID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("getting team", zap.String("team_name", teamID))

	team, e := loadLiveTeam(ctx, t.teams, teamID)
	if e != nil {
		return nil, e
	}
	if e = requireMember(ctx, team, caller); e != nil {
		return nil, e
	}

	res := toModelTeam(team)
	res.Names = resolveNames(ctx, t.directory, team.Members)

	l.Debug("team retrieved successfully", zap.String("team_name", teamID))
	return res, nil
}

func (t *TeamService) UpdateTeam(ctx context.Context, caller, teamID string, patch *model.TeamPatch) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating team", zap.String("team_name", teamID))

	var updated *repository.Team

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		team, e := loadLiveTeam(txCtx, t.teams, teamID)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, team, caller); e != nil {
			return e
		}

		if patch.Desc != nil {
			team.Description = *patch.Desc
		}
		if patch.WantedSkills != nil {
			team.WantedSkills = model.NormalizeSet(patch.WantedSkills)
		}
		if patch.Prizes != nil {
			team.Prizes = model.NormalizeSet(patch.Prizes)
		}

		if err := t.teams.Update(txCtx, team); err != nil {
			return storeError(txCtx, err, "failed to update team")
		}
		updated = team
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	return toModelTeam(updated), nil
}

// ListOpenTeams returns teams still accepting members, optionally filtered by a search term.
func (t *TeamService) ListOpenTeams(ctx context.Context, search string) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)

	teams, err := t.teams.Find(ctx, &repository.TeamFilter{Open: true, Search: search})
	if err != nil {
		l.Error("failed to list teams", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list teams")
	}

	res := make([]*model.Team, 0, len(teams))
	for _, team := range teams {
		if len(team.Members) == 0 {
			continue
		}
		res = append(res, toModelTeam(team))
	}
	return res, nil
}

// TeamOf returns the live team email belongs to.
func (t *TeamService) TeamOf(ctx context.Context, email string) (*model.Team, *Error) {
	team, err := t.teams.GetByMember(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NewError(ErrorCodeNotAMember, "user not in a team")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get team by member", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}
	return toModelTeam(team), nil
}

func (t *TeamService) WithUserRepo(r repository.UserRepository) *TeamService {
	t.users = r
	return t
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithDirectory(d Directory) *TeamService {
	t.directory = d
	return t
}
