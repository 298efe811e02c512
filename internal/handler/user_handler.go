package handler

import (
	"net/http"

	"posbackend/internal/auth"
	"posbackend/internal/middleware"
	"posbackend/internal/service"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	tokens      *auth.TokenManager
	cookies     middleware.CookieOptions
	authLimit   gin.HandlerFunc
}

// NewUserHandler sets up the routing dependencies for auth endpoints. authLimit throttles
// the credential endpoints.
func NewUserHandler(userService service.UserService, tokens *auth.TokenManager, cookies middleware.CookieOptions, authLimit gin.HandlerFunc) *UserHandler {
	if authLimit == nil {
		authLimit = func(c *gin.Context) { c.Next() }
	}
	return &UserHandler{
		userService: userService,
		tokens:      tokens,
		cookies:     cookies,
		authLimit:   authLimit,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/auth")
	{
		// Public routes
		group.POST("/register", h.authLimit, h.Register)
		group.POST("/token", h.authLimit, h.Login)
		group.POST("/refresh", h.authLimit, h.RefreshToken)
		group.POST("/logout", h.Logout)

		group.GET("/me", middleware.RequireAuth(h.tokens), h.GetMe)
	}
}

// Register creates a cashier account
// @Summary      Register user
// @Description  Creates a new cashier account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Registration Payload"
// @Success      201      {object}  response.Response{data=service.UserResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

// Login handles POST /api/auth/token to authenticate and return a token pair
// @Summary      Login user
// @Description  Authenticates a user by username and password, returning access and refresh tokens
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest   true  "Login Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/auth/token [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	tokenRes, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	// Set tokens as HttpOnly cookies
	middleware.SetTokenCookies(c, h.cookies, tokenRes.AccessToken, tokenRes.RefreshToken)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// GetMe returns the user behind the access token
// @Summary      Get current user
// @Description  Get the currently authenticated user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200      {object}  response.Response{data=service.UserResponse}
// @Failure      401      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/auth/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUserByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

// RefreshToken handles POST /api/auth/refresh to rotate the refresh token
// @Summary      Refresh token
// @Description  Issues a new access token and refresh token using a valid refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshTokenRequest   false  "Refresh Token (falls back to the refresh_token cookie)"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/refresh [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	// Try reading refresh_token from cookie first, fallback to body
	refreshToken := middleware.RefreshTokenFromCookie(c)
	if refreshToken == "" {
		var req service.RefreshTokenRequest
		if !bindJSON(c, &req) {
			return
		}
		refreshToken = req.RefreshToken
	}

	tokenRes, err := h.userService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	// Set new tokens as HttpOnly cookies
	middleware.SetTokenCookies(c, h.cookies, tokenRes.AccessToken, tokenRes.RefreshToken)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, tokenRes))
}

// Logout revokes the refresh token and clears auth cookies
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/auth/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	refreshToken := middleware.RefreshTokenFromCookie(c)
	if refreshToken == "" {
		var req service.RefreshTokenRequest
		_ = c.ShouldBindJSON(&req)
		refreshToken = req.RefreshToken
	}
	if err := h.userService.Logout(c.Request.Context(), refreshToken); err != nil {
		respondError(c, err)
		return
	}

	middleware.ClearTokenCookies(c, h.cookies)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}
