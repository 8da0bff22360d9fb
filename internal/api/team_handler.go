package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

type teamRequest struct {
	TeamID string `param:"team_id" validate:"required"`
}

type updateTeamRequest struct {
	TeamID       string   `param:"team_id" validate:"required"`
	Desc         *string  `json:"desc"`
	WantedSkills []string `json:"wanted_skills" validate:"omitempty,dive,required"`
	Prizes       []string `json:"prizes" validate:"omitempty,dive,required"`
}

type memberRequest struct {
	TeamID string `param:"team_id" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
}

func (r *memberRequest) emailField() *string { return &r.Email }

// unifyRequest names the caller's team in the path and the other team in the body.
type unifyRequest struct {
	TeamID string `param:"team_id" validate:"required"`
	Name   string `json:"name" validate:"required"`
}

func (h *Handler) CreateTeam(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var draft model.TeamDraft

	if err := decodeRequest(e, &draft); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating team", zap.String("team_name", draft.Name))

	team, err := h.team.CreateTeam(ctx, callerFromContext(ctx), &draft)
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", draft.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, team)
}

func (h *Handler) GetTeam(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req teamRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, err := h.team.GetTeam(ctx, callerFromContext(ctx), req.TeamID)
	if err != nil {
		l.Error("failed to get team", zap.String("team_name", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) UpdateTeam(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req updateTeamRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, err := h.team.UpdateTeam(ctx, callerFromContext(ctx), req.TeamID, &model.TeamPatch{
		Desc:         req.Desc,
		WantedSkills: req.WantedSkills,
		Prizes:       req.Prizes,
	})
	if err != nil {
		l.Error("failed to update team", zap.String("team_name", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) ListOpenTeams(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	search := e.QueryParam("filter")

	teams, err := h.team.ListOpenTeams(ctx, search)
	if err != nil {
		l.Error("failed to list teams", zap.String("filter", search), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) JoinSolo(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req memberRequest

	if err := decodeRequest(e, &req, normalizeEmailStep[memberRequest]); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("adding member", zap.String("team_name", req.TeamID), zap.String("candidate", req.Email))

	if err := h.team.JoinSolo(ctx, callerFromContext(ctx), req.TeamID, req.Email); err != nil {
		l.Error("failed to add member", zap.String("team_name", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) LeaveTeam(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req teamRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.team.LeaveTeam(ctx, callerFromContext(ctx), req.TeamID); err != nil {
		l.Error("failed to leave team", zap.String("team_name", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) Invite(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req unifyRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.unify.Invite(ctx, callerFromContext(ctx), req.TeamID, req.Name); err != nil {
		l.Error("failed to invite", zap.String("inviter", req.TeamID), zap.String("invitee", req.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) Confirm(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req unifyRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	team, err := h.unify.Confirm(ctx, callerFromContext(ctx), req.Name, req.TeamID)
	if err != nil {
		l.Error("failed to confirm", zap.String("inviter", req.Name), zap.String("invitee", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) Reject(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req unifyRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.unify.Reject(ctx, callerFromContext(ctx), req.Name, req.TeamID); err != nil {
		l.Error("failed to reject", zap.String("inviter", req.Name), zap.String("invitee", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) Rescind(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req unifyRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	if err := h.unify.Rescind(ctx, callerFromContext(ctx), req.TeamID, req.Name); err != nil {
		l.Error("failed to rescind", zap.String("inviter", req.TeamID), zap.String("invitee", req.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}
