package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maxmarketing/backend/internal/app/service/account"
	"github.com/maxmarketing/backend/internal/app/service/entitlement"
	"github.com/maxmarketing/backend/internal/models"
	"github.com/maxmarketing/backend/pkg/config"
)

type stubResolver struct {
	decision entitlement.Decision
	err      error
}

func (r *stubResolver) Resolve(context.Context, string) (entitlement.Decision, error) {
	return r.decision, r.err
}

func testIssuer() *account.TokenIssuer {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	return account.NewTokenIssuer(cfg)
}

func testRouter(issuer *account.TokenIssuer, resolver entitlement.Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/", RequireAuth(issuer), RequirePremium(resolver, zap.NewNop().Sugar()))
	g.GET("/premium", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return r
}

func doRequest(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/premium", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMissingTokenIs401(t *testing.T) {
	r := testRouter(testIssuer(), &stubResolver{decision: entitlement.Decision{Entitled: true}})
	require.Equal(t, http.StatusUnauthorized, doRequest(r, "").Code)
}

func TestGarbageTokenIs401(t *testing.T) {
	r := testRouter(testIssuer(), &stubResolver{decision: entitlement.Decision{Entitled: true}})
	require.Equal(t, http.StatusUnauthorized, doRequest(r, "not-a-jwt").Code)
}

func TestExpiredTokenIs401NotForbidden(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = -time.Hour
	issuer := account.NewTokenIssuer(cfg)
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	// Even a premium user must get 401 for a bad credential; the
	// entitlement check never runs.
	r := testRouter(testIssuer(), &stubResolver{decision: entitlement.Decision{Entitled: true}})
	require.Equal(t, http.StatusUnauthorized, doRequest(r, token).Code)
}

func TestAuthenticatedNotEntitledIs403(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	r := testRouter(issuer, &stubResolver{decision: entitlement.Decision{Entitled: false}})
	require.Equal(t, http.StatusForbidden, doRequest(r, token).Code)
}

func TestResolverErrorFailsClosed(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	r := testRouter(issuer, &stubResolver{err: errors.New("db down")})
	require.Equal(t, http.StatusForbidden, doRequest(r, token).Code)
}

func TestEntitledPassesWithUserID(t *testing.T) {
	issuer := testIssuer()
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c"})
	require.NoError(t, err)

	r := testRouter(issuer, &stubResolver{decision: entitlement.Decision{Entitled: true}})
	w := doRequest(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"user_id":"u1"`)
}

func TestPremiumClaimInTokenIsNotTrusted(t *testing.T) {
	issuer := testIssuer()
	// Token minted while the user was premium; the ledger has since
	// said otherwise.
	token, err := issuer.Issue(&models.User{ID: "u1", Email: "a@b.c", IsPremium: true})
	require.NoError(t, err)

	r := testRouter(issuer, &stubResolver{decision: entitlement.Decision{Entitled: false}})
	require.Equal(t, http.StatusForbidden, doRequest(r, token).Code)
}
