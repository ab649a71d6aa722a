package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/auth"
	"github.com/noah-isme/backend-kasir/internal/common"
)

var testSecret = []byte("terminal-secret")

func signedToken(t *testing.T, roles any, expiresIn time.Duration) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer("backend").
		Audience([]string{"terminal"}).
		Subject("cashier-1").
		IssuedAt(now).
		Expiration(now.Add(expiresIn))
	if roles != nil {
		builder = builder.Claim("roles", roles)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	require.NoError(t, err)
	return string(signed)
}

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier(testSecret, "backend", "terminal", time.Second)
	require.NoError(t, err)
	return v
}

func TestVerifyExtractsActor(t *testing.T) {
	v := newVerifier(t)
	actor, err := v.Verify(signedToken(t, []string{"cashier", "supervisor"}, time.Minute))
	require.NoError(t, err)
	require.Equal(t, "cashier-1", actor.ID)
	require.True(t, actor.HasRole("cashier"))
	require.True(t, actor.HasRole("supervisor", "admin"))
	require.False(t, actor.HasRole("admin"))
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := newVerifier(t)
	_, err := v.Verify(signedToken(t, []string{"cashier"}, -time.Hour))
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, err := auth.NewVerifier([]byte("another-secret"), "backend", "terminal", time.Second)
	require.NoError(t, err)
	_, err = v.Verify(signedToken(t, nil, time.Minute))
	require.Error(t, err)
}

func TestVerifyMissingRolesClaim(t *testing.T) {
	v := newVerifier(t)
	actor, err := v.Verify(signedToken(t, nil, time.Minute))
	require.NoError(t, err)
	require.Empty(t, actor.Roles)
	require.False(t, actor.HasRole("cashier"))
}

func TestRequireAuthAndRole(t *testing.T) {
	v := newVerifier(t)
	mw := auth.Middleware{Verifier: v}

	var reached bool
	handler := mw.RequireAuth(auth.RequireRole("cashier")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		actor, ok := common.ActorFrom(r.Context())
		require.True(t, ok)
		require.Equal(t, "cashier-1", actor.ID)
		w.WriteHeader(http.StatusNoContent)
	})))

	// No token.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/checkout", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, reached)

	// Authenticated but missing the role.
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, []string{"viewer"}, time.Minute))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.False(t, reached)

	// Authenticated with the role.
	req = httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, []string{"cashier"}, time.Minute))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.True(t, reached)
}
