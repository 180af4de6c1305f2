package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/pkg/logctx"
	"github.com/maxmarketing/backend/pkg/response"
)

// RequireAuth validates the bearer token and attaches user_id to the
// gin and request contexts. Missing, malformed or expired tokens all
// answer 401.
func RequireAuth(tokens *account.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeBadRequest, "unauthorized"))
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeBadRequest, "unauthorized"))
			return
		}
		c.Set("user_id", claims.Subject)
		c.Set("user_email", claims.Email)
		ctx := context.WithValue(c.Request.Context(), "user_id", claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequirePremium gates premium features. It runs after RequireAuth and
// recomputes entitlement from the subscription ledger on every request;
// the is_premium claim in the token is never trusted. Resolver errors
// deny access.
func RequirePremium(resolver entitlement.Resolver, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeBadRequest, "unauthorized"))
			return
		}
		decision, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("entitlement_resolve_failed", "user_id", userID, "err", err)
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT(response.APIResponseCodeBadRequest, "premium subscription required"))
			return
		}
		if !decision.Entitled {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT(response.APIResponseCodeBadRequest, "premium subscription required"))
			return
		}
		c.Next()
	}
}
