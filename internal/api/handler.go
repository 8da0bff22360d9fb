package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yakoovad/teambuilder/internal/auth"
	"github.com/yakoovad/teambuilder/internal/service"
	"github.com/yakoovad/teambuilder/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	team    *service.TeamService
	unify   *service.UnifyService
	match   *service.MatchService
	user    *service.UserService
	session *service.SessionService

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithUnifyService(unify *service.UnifyService) *Handler {
	h.unify = unify
	return h
}

func (h *Handler) WithMatchService(match *service.MatchService) *Handler {
	h.match = match
	return h
}

func (h *Handler) WithUserService(user *service.UserService) *Handler {
	h.user = user
	return h
}

func (h *Handler) WithSessionService(session *service.SessionService) *Handler {
	h.session = session
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if h.healthChecker != nil {
		e.GET("/health", h.healthChecker.HealthCheck())
	}

	e.POST("/auth/session", h.StartSession)

	userSecurity := e.Group("", AuthMiddleware(auth.TokenTypeUser, auth.TokenTypeAdmin))

	userSecurity.POST("/users", h.CreateProfile)
	userSecurity.GET("/users/profile", h.GetProfile)
	userSecurity.PUT("/users/profile", h.UpdateProfile)

	userSecurity.GET("/teams", h.ListOpenTeams)
	userSecurity.POST("/teams", h.CreateTeam)
	userSecurity.GET("/teams/:team_id", h.GetTeam)
	userSecurity.PUT("/teams/:team_id", h.UpdateTeam)
	userSecurity.POST("/teams/:team_id/members", h.JoinSolo)
	userSecurity.POST("/teams/:team_id/leave", h.LeaveTeam)

	userSecurity.POST("/teams/:team_id/invite", h.Invite)
	userSecurity.POST("/teams/:team_id/confirm", h.Confirm)
	userSecurity.POST("/teams/:team_id/reject", h.Reject)
	userSecurity.POST("/teams/:team_id/rescind", h.Rescind)

	userSecurity.GET("/matches", h.RecommendForUser)
	userSecurity.GET("/matches/:team_id", h.RecommendForTeam)

	adminSecurity := e.Group("", AuthMiddleware(auth.TokenTypeAdmin))

	adminSecurity.GET("/users", h.ListProfiles)
}

type sessionRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

func (r *sessionRequest) emailField() *string { return &r.Email }

func (h *Handler) StartSession(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req sessionRequest

	if err := decodeRequest(e, &req, normalizeEmailStep[sessionRequest]); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("starting session", zap.String("email", req.Email))

	session, err := h.session.StartSession(e.Request().Context(), req.Email, req.Token)
	if err != nil {
		l.Error("failed to start session", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, session)
}

func errorResponse(err *service.Error) any {
	return struct {
		Error *service.Error `json:"error"`
	}{Error: err}
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := errorResponse(err)

	switch err.Kind() {
	case service.KindNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.KindConflict:
		return e.JSON(http.StatusConflict, response)
	case service.KindInvalidState:
		return e.JSON(http.StatusUnprocessableEntity, response)
	case service.KindUpstreamUnavailable:
		return e.JSON(http.StatusBadGateway, response)
	case service.KindValidation:
		return e.JSON(http.StatusBadRequest, response)
	case service.KindUnauthorized:
		return e.JSON(http.StatusUnauthorized, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
