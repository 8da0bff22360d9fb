package service

import (
	"context"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/directory"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

// Directory is the subset of the identity service the core depends on.
type Directory interface {
	Authorize(ctx context.Context) (directory.Token, error)
	Validate(ctx context.Context, email string, token string) error
	ResolveName(ctx context.Context, token directory.Token, email string) (string, error)
}

// asError extracts the service error returned from a transaction. Anything else is unspecified.
func asError(err error) *Error {
	if err == nil {
		return nil
	}
	var res *Error
	if errors.As(err, &res) {
		return res
	}
	return NewError(ErrorCodeUnspecified, "internal error")
}

// storeError translates a failed write. A lost version race becomes CONFLICT.
func storeError(ctx context.Context, err error, msg string) *Error {
	l := logger.FromContext(ctx)
	if errors.Is(err, repository.ErrConflict) {
		l.Warn("concurrent modification", zap.String("op", msg))
		return NewError(ErrorCodeConflict, "concurrent modification, retry")
	}
	l.Error(msg, zap.Error(err))
	return NewError(ErrorCodeUnspecified, msg)
}

// loadLiveTeam fetches a team that has not been dissolved.
func loadLiveTeam(ctx context.Context, teams repository.TeamRepository, name string) (*repository.Team, *Error) {
	team, err := teams.Get(ctx, name)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && team.Dissolved) {
		logger.FromContext(ctx).Warn("team not found", zap.String("team_name", name))
		return nil, NewError(ErrorCodeTeamNotFound, "team not found")
	}
	if err != nil {
		logger.FromContext(ctx).Error("failed to get team", zap.String("team_name", name), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}
	return team, nil
}

func requireMember(ctx context.Context, team *repository.Team, email string) *Error {
	if slices.Contains(team.Members, email) {
		return nil
	}
	logger.FromContext(ctx).Warn("caller is not a member",
		zap.String("team_name", team.Name),
		zap.String("email", email))
	return NewError(ErrorCodeNotAMember, "user not in team "+team.Name)
}

// updateTeams writes teams in name order so concurrent writers of the same
// pair take row locks in the same order. The loser of a race gets ErrConflict.
func updateTeams(ctx context.Context, teams repository.TeamRepository, ts ...*repository.Team) error {
	ordered := slices.Clone(ts)
	slices.SortFunc(ordered, func(a, b *repository.Team) int { return strings.Compare(a.Name, b.Name) })

	for _, t := range ordered {
		if err := teams.Update(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// retireInvites withdraws every outstanding invite teamID issued and clears the
// pending sets of members. Callers clear the team's own interested set beforehand.
func retireInvites(ctx context.Context, users repository.UserRepository, teams repository.TeamRepository, teamID string, members []string) error {
	if err := teams.RemoveInterest(ctx, teamID); err != nil {
		return errors.Wrap(err, "remove interest")
	}
	if err := users.RemovePendingTeam(ctx, teamID); err != nil {
		return errors.Wrap(err, "remove pending team")
	}
	if err := users.SetPendingTeams(ctx, nil, members); err != nil {
		return errors.Wrap(err, "clear pending teams")
	}
	return nil
}

// resolveNames looks up display names for emails. Directory failures degrade to "".
func resolveNames(ctx context.Context, dir Directory, emails []string) []string {
	names := make([]string, len(emails))
	if dir == nil || len(emails) == 0 {
		return names
	}

	l := logger.FromContext(ctx)

	token, err := dir.Authorize(ctx)
	if err != nil {
		l.Warn("directory authorize failed, names left empty", zap.Error(err))
		return names
	}

	for i, email := range emails {
		name, err := dir.ResolveName(ctx, token, email)
		if err != nil {
			l.Debug("name lookup failed", zap.String("email", email), zap.Error(err))
			continue
		}
		names[i] = name
	}
	return names
}

// checkAccount confirms the directory knows email. The directory is the only
// source for this decision, so its outage is fatal here.
func checkAccount(ctx context.Context, dir Directory, email string) *Error {
	if dir == nil {
		return nil
	}

	l := logger.FromContext(ctx)

	token, err := dir.Authorize(ctx)
	if err != nil {
		l.Error("directory authorize failed", zap.Error(err))
		return NewError(ErrorCodeUpstream, "directory unavailable")
	}

	_, err = dir.ResolveName(ctx, token, email)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		l.Warn("no directory account", zap.String("email", email))
		return NewError(ErrorCodeInvalidUser, "user doesn't have a directory account")
	case err != nil:
		l.Error("directory lookup failed", zap.String("email", email), zap.Error(err))
		return NewError(ErrorCodeUpstream, "directory unavailable")
	}
	return nil
}

func toModelTeam(t *repository.Team) *model.Team {
	return &model.Team{
		Name:         t.Name,
		Members:      slices.Clone(t.Members),
		Desc:         t.Description,
		WantedSkills: slices.Clone(t.WantedSkills),
		Prizes:       slices.Clone(t.Prizes),
		Complete:     t.Complete,
		Interested:   slices.Clone(t.Interested),
	}
}

func toModelUser(u *repository.User) *model.User {
	return &model.User{
		Email:        u.Email,
		HasTeam:      u.HasTeam,
		Skills:       slices.Clone(u.Skills),
		Prizes:       slices.Clone(u.Prizes),
		Bio:          u.Bio,
		Github:       u.Github,
		PendingTeams: slices.Clone(u.PendingTeams),
	}
}

func without(values []string, v string) []string {
	return slices.DeleteFunc(slices.Clone(values), func(s string) bool { return s == v })
}
