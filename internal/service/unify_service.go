package service

import (
	"context"
	"slices"

	"github.com/yakoovad/teambuilder/internal/db"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/repository"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

// UnifyService negotiates merges between two incomplete teams. For a pair (A, B)
// the relation is held in B.interested: A in B.interested means A invited B.
// On confirm the inviting team A absorbs B and B's record is retired.
type UnifyService struct {
	tx db.Transactor

	users repository.UserRepository
	teams repository.TeamRepository
}

func NewUnifyService(tx db.Transactor) *UnifyService {
	return &UnifyService{tx: tx}
}

// Invite records that inviter (the caller's team) wants to merge with invitee.
func (u *UnifyService) Invite(ctx context.Context, caller, inviter, invitee string) *Error {
	l := logger.FromContext(ctx).With(zap.String("inviter", inviter), zap.String("invitee", invitee))
	l.Info("inviting team")

	if inviter == invitee {
		l.Warn("self invite")
		return NewError(ErrorCodeSelfInvite, "team cannot invite itself")
	}

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		a, e := loadLiveTeam(txCtx, u.teams, inviter)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, a, caller); e != nil {
			return e
		}
		b, e := loadLiveTeam(txCtx, u.teams, invitee)
		if e != nil {
			return e
		}

		if a.Complete || b.Complete {
			l.Warn("team complete", zap.Bool("inviter_complete", a.Complete), zap.Bool("invitee_complete", b.Complete))
			return NewError(ErrorCodeTeamFull, "team complete")
		}
		if slices.Contains(b.Interested, inviter) {
			l.Warn("invite already pending")
			return NewError(ErrorCodeAlreadyInvited, "invite already pending")
		}
		if slices.Contains(a.Interested, invitee) {
			l.Warn("reverse invite pending")
			return NewError(ErrorCodeConflictingInvite, invitee+" has already invited "+inviter)
		}

		// a is written unchanged so that a racing invite, join or merge on the
		// inviter fails its version check.
		b.Interested = append(b.Interested, inviter)
		if err := updateTeams(txCtx, u.teams, a, b); err != nil {
			return storeError(txCtx, err, "failed to record invite")
		}
		if err := u.users.AddPendingTeam(txCtx, inviter, b.Members); err != nil {
			return storeError(txCtx, err, "failed to record pending team")
		}

		l.Debug("invite recorded")
		return nil
	})

	return asError(err)
}

// Confirm accepts inviter's pending invite on behalf of invitee (the caller's team)
// and merges invitee's members into inviter. Capacity is checked here rather than
// at invite time because either team may have changed size since.
func (u *UnifyService) Confirm(ctx context.Context, caller, inviter, invitee string) (*model.Team, *Error) {
	l := logger.FromContext(ctx).With(zap.String("inviter", inviter), zap.String("invitee", invitee))
	l.Info("confirming invite")

	if inviter == invitee {
		return nil, NewError(ErrorCodeSelfInvite, "team cannot invite itself")
	}

	var merged *repository.Team

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		b, e := loadLiveTeam(txCtx, u.teams, invitee)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, b, caller); e != nil {
			return e
		}
		if !slices.Contains(b.Interested, inviter) {
			l.Warn("no pending invite")
			return NewError(ErrorCodeNotInvited, "no pending invite from "+inviter)
		}
		a, e := loadLiveTeam(txCtx, u.teams, inviter)
		if e != nil {
			return e
		}

		if combined := len(a.Members) + len(b.Members); combined > model.TeamCapacity {
			l.Warn("merge exceeds capacity", zap.Int("combined", combined))
			return NewError(ErrorCodeCapacityExceeded, "combined team would exceed capacity")
		}

		absorbed := b.Members

		a.Members = append(a.Members, absorbed...)
		a.Complete = len(a.Members) == model.TeamCapacity
		if a.Complete {
			a.Interested = nil
		}

		b.Members = nil
		b.Interested = nil
		b.Complete = false
		b.Dissolved = true

		if err := updateTeams(txCtx, u.teams, a, b); err != nil {
			return storeError(txCtx, err, "failed to merge teams")
		}

		// Invites the absorbed team sent die with it; its members inherit the absorbing team's.
		if err := retireInvites(txCtx, u.users, u.teams, invitee, nil); err != nil {
			return storeError(txCtx, err, "failed to retire absorbed team invites")
		}
		if err := u.users.SetPendingTeams(txCtx, a.Interested, absorbed); err != nil {
			return storeError(txCtx, err, "failed to move pending teams")
		}
		if a.Complete {
			if err := retireInvites(txCtx, u.users, u.teams, inviter, a.Members); err != nil {
				return storeError(txCtx, err, "failed to retire invites")
			}
		}

		merged = a
		l.Info("teams merged", zap.Int("size", len(a.Members)), zap.Bool("complete", a.Complete))
		return nil
	})
	if err != nil {
		return nil, asError(err)
	}

	return toModelTeam(merged), nil
}

// Reject declines inviter's pending invite on behalf of invitee (the caller's team).
func (u *UnifyService) Reject(ctx context.Context, caller, inviter, invitee string) *Error {
	l := logger.FromContext(ctx).With(zap.String("inviter", inviter), zap.String("invitee", invitee))
	l.Info("rejecting invite")

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		b, e := loadLiveTeam(txCtx, u.teams, invitee)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, b, caller); e != nil {
			return e
		}
		return u.withdraw(txCtx, b, inviter)
	})

	return asError(err)
}

// Rescind withdraws the invite the caller's team (inviter) sent to invitee.
func (u *UnifyService) Rescind(ctx context.Context, caller, inviter, invitee string) *Error {
	l := logger.FromContext(ctx).With(zap.String("inviter", inviter), zap.String("invitee", invitee))
	l.Info("rescinding invite")

	err := u.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		a, e := loadLiveTeam(txCtx, u.teams, inviter)
		if e != nil {
			return e
		}
		if e = requireMember(txCtx, a, caller); e != nil {
			return e
		}
		b, e := loadLiveTeam(txCtx, u.teams, invitee)
		if e != nil {
			return e
		}
		return u.withdraw(txCtx, b, inviter)
	})

	return asError(err)
}

// withdraw removes a pending inviter -> invitee relation. A missing relation is
// reported so callers can detect stale state.
func (u *UnifyService) withdraw(ctx context.Context, invitee *repository.Team, inviter string) error {
	if !slices.Contains(invitee.Interested, inviter) {
		logger.FromContext(ctx).Warn("no pending invite",
			zap.String("inviter", inviter),
			zap.String("invitee", invitee.Name))
		return NewError(ErrorCodeNotInvited, "no pending invite from "+inviter)
	}

	invitee.Interested = without(invitee.Interested, inviter)
	if err := u.teams.Update(ctx, invitee); err != nil {
		return storeError(ctx, err, "failed to withdraw invite")
	}
	if err := u.users.RemovePendingTeam(ctx, inviter, invitee.Members...); err != nil {
		return storeError(ctx, err, "failed to clear pending team")
	}
	return nil
}

func (u *UnifyService) WithUserRepo(r repository.UserRepository) *UnifyService {
	u.users = r
	return u
}

func (u *UnifyService) WithTeamRepo(r repository.TeamRepository) *UnifyService {
	u.teams = r
	return u
}
