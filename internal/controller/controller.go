package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/t7170868-beep/cyberprobes-sub000/internal/models"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/service"
	"github.com/t7170868-beep/cyberprobes-sub000/internal/util"
)

type ErrorResponse struct {
	Reason string `json:"reason"`
}

type Controller struct {
	zapLogger      *zap.SugaredLogger
	authService    *service.AuthService
	contentService *service.ContentService
}

func NewController(logger *zap.SugaredLogger, authService *service.AuthService, contentService *service.ContentService) *Controller {
	return &Controller{
		zapLogger:      logger,
		authService:    authService,
		contentService: contentService,
	}
}

// RegisterRoutes wires the public API under base and the
// server-to-server issuance endpoints under /internal. The extra
// middlewares (request validation) apply to the public group only; the
// throttle covers just the auth endpoints.
func RegisterRoutes(e *echo.Echo, c *Controller, base string, bearer, apiKey, throttle echo.MiddlewareFunc, groupMw ...echo.MiddlewareFunc) {
	g := e.Group(base, groupMw...)
	g.GET("/ping", c.CheckServer)

	auth := g.Group("/auth", throttle)
	auth.POST("/login", c.Login)
	auth.POST("/refresh", c.Refresh)
	auth.POST("/logout", c.Logout)
	auth.POST("/logout-all", c.LogoutAll, bearer)
	auth.GET("/me", c.Me, bearer)

	g.POST("/videos/:id/playback-url", c.PlaybackURL, bearer)
	g.GET("/videos/:id/stream", c.Stream)
	g.POST("/videos/:id/access-token", c.MintCapability, bearer)
	g.POST("/videos/:id/access", c.AuthorizeCapability)

	internal := e.Group("/internal", apiKey)
	internal.POST("/videos/:id/playback-url", c.InternalPlaybackURL)
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	pair, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password, clientMetadata(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, pair)
}

// (POST /api/auth/refresh).
func (c *Controller) Refresh(ctx echo.Context) error {
	var req models.RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	accessToken, err := c.authService.Refresh(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.AccessTokenResponse{AccessToken: accessToken})
}

// (POST /api/auth/logout). The access token travels in the
// Authorization header, the refresh token in the body; both get
// blacklisted.
func (c *Controller) Logout(ctx echo.Context) error {
	var req models.LogoutRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	accessToken, _ := service.ExtractBearerToken(ctx.Request().Header.Get(echo.HeaderAuthorization))

	if err := c.authService.Logout(ctx.Request().Context(), accessToken, req.RefreshToken); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// (POST /api/auth/logout-all).
func (c *Controller) LogoutAll(ctx echo.Context) error {
	userID, err := contextUserID(ctx)
	if err != nil {
		return err
	}

	if err := c.authService.LogoutAll(ctx.Request().Context(), userID); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// (GET /api/auth/me).
func (c *Controller) Me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"user_id":    contextString(ctx, models.MwUserIDKey),
		"email":      contextString(ctx, models.MwUserEmailKey),
		"role":       contextString(ctx, models.MwUserRoleKey),
		"session_id": contextString(ctx, models.MwSessionIDKey),
	})
}

// (POST /api/videos/{id}/playback-url).
func (c *Controller) PlaybackURL(ctx echo.Context) error {
	videoID := ctx.Param("id")
	userID := contextString(ctx, models.MwUserIDKey)

	grant, err := c.contentService.GrantPlayback(ctx.Request().Context(), videoID, userID, 0)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, grant)
}

// (GET /api/videos/{id}/stream).
func (c *Controller) Stream(ctx echo.Context) error {
	videoID := ctx.Param("id")
	params := ctx.QueryParams()

	var userID string
	if err := runtime.BindQueryParameter("form", true, true, "userId", params, &userID); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "userId is required")
	}
	var expiresAt int64
	if err := runtime.BindQueryParameter("form", true, true, "expires", params, &expiresAt); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expires must be an integer")
	}
	var signature string
	if err := runtime.BindQueryParameter("form", true, true, "signature", params, &signature); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "signature is required")
	}

	video, err := c.contentService.ResolvePlayback(ctx.Request().Context(), videoID, userID, expiresAt, signature)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.StreamResponse{
		VideoID:    video.ID,
		StorageKey: video.StorageKey,
	})
}

// (POST /api/videos/{id}/access-token).
func (c *Controller) MintCapability(ctx echo.Context) error {
	videoID := ctx.Param("id")
	userID := contextString(ctx, models.MwUserIDKey)

	var req models.CapabilityRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, err := c.contentService.MintCapability(ctx.Request().Context(), videoID, userID, req.Permissions, 0)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, token)
}

// (POST /api/videos/{id}/access).
func (c *Controller) AuthorizeCapability(ctx echo.Context) error {
	videoID := ctx.Param("id")

	var req models.CapabilityVerifyRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	video, err := c.contentService.AuthorizeCapability(ctx.Request().Context(), videoID, req.Token, req.Permission)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.StreamResponse{
		VideoID:    video.ID,
		StorageKey: video.StorageKey,
	})
}

// (POST /internal/videos/{id}/playback-url). API-key guarded
// issuance for the website backend.
func (c *Controller) InternalPlaybackURL(ctx echo.Context) error {
	videoID := ctx.Param("id")

	var req models.InternalGrantRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second

	grant, err := c.contentService.GrantPlayback(ctx.Request().Context(), videoID, req.UserID, ttl)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, grant)
}

func clientMetadata(ctx echo.Context) models.ClientMetadata {
	return models.ClientMetadata{
		UserAgent: ctx.Request().UserAgent(),
		IPAddress: ctx.RealIP(),
	}
}

func contextString(ctx echo.Context, key string) string {
	if v, ok := ctx.Get(key).(string); ok {
		return v
	}
	return ""
}

func contextUserID(ctx echo.Context) (int64, error) {
	raw := contextString(ctx, models.MwUserIDKey)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, util.NewResponseError(http.StatusUnauthorized, "invalid user identity")
	}
	return userID, nil
}
