package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

// MatchService recommends solo hackers and open teams whose skills or prize
// tracks overlap what a team is looking for.
//
// Order is deterministic: candidates are grouped by the first wanted skill (in
// the team's declared order) they match, then by prize; within a group they are
// sorted by id. A candidate matching several attributes appears once, at its
// first match.
type MatchService struct {
	users     repository.UserRepository
	teams     repository.TeamRepository
	directory Directory
}

func NewMatchService() *MatchService {
	return &MatchService{}
}

// RecommendForUser recommends solo users for the team email belongs to.
func (m *MatchService) RecommendForUser(ctx context.Context, email string) ([]*model.Candidate, *Error) {
	l := logger.FromContext(ctx)
	l.Info("recommending for user", zap.String("email", email))

	team, err := m.teams.GetByMember(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("user not in a team", zap.String("email", email))
		return nil, NewError(ErrorCodeNotAMember, "user not in a team")
	}
	if err != nil {
		l.Error("failed to get team by member", zap.String("email", email), zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to get team")
	}

	if len(team.WantedSkills) == 0 {
		l.Warn("team profile incomplete", zap.String("team_name", team.Name))
		return nil, NewError(ErrorCodeProfileIncomplete, "profile not complete")
	}

	candidates, e := m.soloCandidates(ctx, team)
	if e != nil {
		return nil, e
	}

	return m.finish(ctx, team.Name, candidates)
}

// RecommendForTeam recommends solo users, then other open teams, for teamID.
func (m *MatchService) RecommendForTeam(ctx context.Context, teamID string) ([]*model.Candidate, *Error) {
	l := logger.FromContext(ctx)
	l.Info("recommending for team", zap.String("team_name", teamID))

	team, e := loadLiveTeam(ctx, m.teams, teamID)
	if e != nil {
		return nil, e
	}

	if len(team.WantedSkills) == 0 {
		l.Warn("team profile incomplete", zap.String("team_name", team.Name))
		return nil, NewError(ErrorCodeProfileIncomplete, "profile not complete")
	}

	candidates, e := m.soloCandidates(ctx, team)
	if e != nil {
		return nil, e
	}

	teams, e := m.teamCandidates(ctx, team)
	if e != nil {
		return nil, e
	}

	return m.finish(ctx, team.Name, append(candidates, teams...))
}

func (m *MatchService) soloCandidates(ctx context.Context, team *repository.Team) ([]*model.Candidate, *Error) {
	solo := false
	seen := make(map[string]struct{})
	res := make([]*model.Candidate, 0)

	collect := func(filter *repository.UserFilter, matchedOn string) *Error {
		filter.HasTeam = &solo

		users, err := m.users.Find(ctx, filter)
		if err != nil {
			logger.FromContext(ctx).Error("failed to find users", zap.String("matched_on", matchedOn), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to find matches")
		}

		for _, u := range users {
			if _, ok := seen[u.Email]; ok {
				continue
			}
			seen[u.Email] = struct{}{}
			res = append(res, &model.Candidate{
				Kind:      model.CandidateKindUser,
				ID:        u.Email,
				Skills:    u.Skills,
				Prizes:    u.Prizes,
				MatchedOn: matchedOn,
			})
		}
		return nil
	}

	for _, skill := range team.WantedSkills {
		if e := collect(&repository.UserFilter{Skill: skill}, skill); e != nil {
			return nil, e
		}
	}
	for _, prize := range team.Prizes {
		if e := collect(&repository.UserFilter{Prize: prize}, prize); e != nil {
			return nil, e
		}
	}

	return res, nil
}

func (m *MatchService) teamCandidates(ctx context.Context, team *repository.Team) ([]*model.Candidate, *Error) {
	seen := map[string]struct{}{team.Name: {}}
	res := make([]*model.Candidate, 0)

	collect := func(filter *repository.TeamFilter, matchedOn string) *Error {
		filter.Open = true

		teams, err := m.teams.Find(ctx, filter)
		if err != nil {
			logger.FromContext(ctx).Error("failed to find teams", zap.String("matched_on", matchedOn), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to find matches")
		}

		for _, t := range teams {
			if _, ok := seen[t.Name]; ok || len(t.Members) == 0 {
				continue
			}
			seen[t.Name] = struct{}{}
			res = append(res, &model.Candidate{
				Kind:      model.CandidateKindTeam,
				ID:        t.Name,
				Skills:    t.WantedSkills,
				Prizes:    t.Prizes,
				MatchedOn: matchedOn,
			})
		}
		return nil
	}

	for _, skill := range team.WantedSkills {
		if e := collect(&repository.TeamFilter{WantedSkill: skill}, skill); e != nil {
			return nil, e
		}
	}
	for _, prize := range team.Prizes {
		if e := collect(&repository.TeamFilter{Prize: prize}, prize); e != nil {
			return nil, e
		}
	}

	return res, nil
}

// finish resolves display names for user candidates and rejects an empty result.
func (m *MatchService) finish(ctx context.Context, teamName string, candidates []*model.Candidate) ([]*model.Candidate, *Error) {
	if len(candidates) == 0 {
		logger.FromContext(ctx).Info("no recommendations found", zap.String("team_name", teamName))
		return nil, NewError(ErrorCodeNoMatches, "no recommendations found")
	}

	emails := make([]string, 0, len(candidates))
	idx := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.Kind == model.CandidateKindUser {
			emails = append(emails, c.ID)
			idx = append(idx, i)
		}
	}

	for i, name := range resolveNames(ctx, m.directory, emails) {
		candidates[idx[i]].Name = name
	}

	logger.FromContext(ctx).Debug("recommendations ready",
		zap.String("team_name", teamName),
		zap.Int("count", len(candidates)))
	return candidates, nil
}

func (m *MatchService) WithUserRepo(r repository.UserRepository) *MatchService {
	m.users = r
	return m
}

func (m *MatchService) WithTeamRepo(r repository.TeamRepository) *MatchService {
	m.teams = r
	return m
}

func (m *MatchService) WithDirectory(d Directory) *MatchService {
	m.directory = d
	return m
}
