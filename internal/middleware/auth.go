package middleware

import (
	"errors"
	"net/http"
	"strings"

	"app/internal/infra/identity"
	"app/internal/repository"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"   // int64
	CtxUserRoleKey = "user_role" // string
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func errorJSON(msg string, code string) errorResponse {
	return errorResponse{Error: msg, Code: code}
}

// BearerToken はAuthorizationヘッダからbearerトークンを抜く。
func BearerToken(c echo.Context) (string, bool) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return "", false
	}

	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// RequireUser はbearerトークンを外部IDプロバイダ経由で検証し、
// ローカルユーザーに解決してcontextへ入れる。
// 未同期ユーザー（検証は通るがローカルに居ない）は401。
func RequireUser(verifier identity.Verifier, users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "UNAUTHORIZED"))
			}

			claims, err := verifier.Verify(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrUnavailable) {
					return c.JSON(http.StatusServiceUnavailable, errorJSON("identity provider unavailable", "PROVIDER_UNAVAILABLE"))
				}
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "UNAUTHORIZED"))
			}

			user, err := users.FindBySubjectUID(c.Request().Context(), claims.Subject)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, errorJSON("internal error", "INTERNAL"))
			}
			if user == nil || !user.IsActive {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized", "UNAUTHORIZED"))
			}

			//contextへ保存
			c.Set(CtxUserIDKey, user.ID)
			c.Set(CtxUserRoleKey, string(user.Role))

			return next(c)
		}
	}
}
