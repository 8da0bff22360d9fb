package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/yakoovad/teambuilder/internal/model"
	"github.com/yakoovad/teambuilder/internal/service"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

type profileRequest struct {
	Skills []string `json:"skills" validate:"omitempty,dive,required"`
	Prizes []string `json:"prizes" validate:"omitempty,dive,required"`
	Bio    *string  `json:"bio"`
	Github *string  `json:"github"`
}

func (r *profileRequest) patch() *model.UserPatch {
	return &model.UserPatch{
		Skills: r.Skills,
		Prizes: r.Prizes,
		Bio:    r.Bio,
		Github: r.Github,
	}
}

func (h *Handler) CreateProfile(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req profileRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	user, err := h.user.CreateProfile(ctx, callerFromContext(ctx), req.patch())
	if err != nil {
		l.Error("failed to create profile", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, user)
}

func (h *Handler) GetProfile(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	user, err := h.user.GetProfile(ctx, callerFromContext(ctx))
	if err != nil {
		l.Error("failed to get profile", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateProfile(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req profileRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	user, err := h.user.UpdateProfile(ctx, callerFromContext(ctx), req.patch())
	if err != nil {
		l.Error("failed to update profile", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, user)
}

func (h *Handler) ListProfiles(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	filter := &model.UserFilter{
		Skill: e.QueryParam("skill"),
		Prize: e.QueryParam("prize"),
	}
	if raw := e.QueryParam("hasateam"); raw != "" {
		hasTeam, err := strconv.ParseBool(raw)
		if err != nil {
			l.Warn("invalid hasateam filter", zap.String("value", raw))
			return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "hasateam must be a boolean"))
		}
		filter.HasTeam = &hasTeam
	}

	users, err := h.user.ListProfiles(ctx, filter)
	if err != nil {
		l.Error("failed to list profiles", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, users)
}

func (h *Handler) RecommendForUser(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	candidates, err := h.match.RecommendForUser(ctx, callerFromContext(ctx))
	if err != nil {
		l.Warn("no recommendations for user", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, candidates)
}

func (h *Handler) RecommendForTeam(e echo.Context) error {
	ctx := e.Request().Context()
	l := logger.FromContext(ctx)

	var req teamRequest

	if err := decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	candidates, err := h.match.RecommendForTeam(ctx, req.TeamID)
	if err != nil {
		l.Warn("no recommendations for team", zap.String("team_name", req.TeamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, candidates)
}
