package middleware

import (
	"net/http"
	"strings"
	"time"

	"posbackend/internal/auth"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "userID"
	ContextUsername = "username"
	ContextUserRole = "userRole"

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// CookieOptions controls how token cookies are issued.
type CookieOptions struct {
	// Secure switches to SameSite=None; Secure for cross-origin production front ends.
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, opts CookieOptions, accessToken, refreshToken string) {
	c.SetSameSite(sameSite(opts))
	c.SetCookie(accessCookie, accessToken, int(opts.AccessTTL.Seconds()), "/", "", opts.Secure, true)
	c.SetCookie(refreshCookie, refreshToken, int(opts.RefreshTTL.Seconds()), "/", "", opts.Secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(sameSite(opts))
	c.SetCookie(accessCookie, "", -1, "/", "", opts.Secure, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", opts.Secure, true)
}

func sameSite(opts CookieOptions) http.SameSite {
	if opts.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// RefreshTokenFromCookie returns the refresh token cookie, or "" when absent.
func RefreshTokenFromCookie(c *gin.Context) string {
	token, _ := c.Cookie(refreshCookie)
	return token
}

// extractToken reads the access token from the cookie first, then the Authorization header.
func extractToken(c *gin.Context) (string, string) {
	if token, err := c.Cookie(accessCookie); err == nil && token != "" {
		return token, ""
	}
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "Authorization is missing"
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

func authenticate(c *gin.Context, tokens *auth.TokenManager) (*auth.Claims, bool) {
	tokenString, problem := extractToken(c)
	if problem != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorWithCode(http.StatusUnauthorized, "UNAUTHORIZED", problem, nil))
		return nil, false
	}
	claims, err := tokens.Parse(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorWithCode(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil))
		return nil, false
	}

	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextUserRole, claims.Role)
	return claims, true
}

// RequireAuth accepts any valid access token.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authenticate(c, tokens); !ok {
			return
		}
		c.Next()
	}
}

// RequireRole Middleware validates the JWT token and checks if the user's role exists in the allowedRoles list
func RequireRole(tokens *auth.TokenManager, allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, tokens)
		if !ok {
			return
		}

		for _, role := range allowedRoles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorWithCode(http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions", nil))
	}
}

// CurrentUserID returns the authenticated user's id, or "" outside RequireAuth.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
