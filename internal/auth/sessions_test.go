package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"bookhub/internal/testutil"
)

type fakeRequest struct {
	headers map[string]string
	cookies map[string]string
}

func (f fakeRequest) Header(name string) string { return f.headers[name] }
func (f fakeRequest) Cookie(name string) string { return f.cookies[name] }

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "bookhub-test", Duration: DefaultTokenDuration}
}

func newTestSessions(t *testing.T) (*Sessions, *Repo) {
	t.Helper()
	repo := NewRepo(testutil.SetupTestDB(t))
	return NewSessions(testTokens(), repo, false, nil), repo
}

func createUser(t *testing.T, repo *Repo, email string) *User {
	t.Helper()
	u := User{ID: "user-" + email, Name: "Reader", Email: email, PasswordHash: "x"}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func TestIssueTokenLifetime(t *testing.T) {
	u := &User{ID: "u1", Email: "a@example.com"}
	token, exp, err := testTokens().Issue(u)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), exp, time.Minute)

	claims, err := testTokens().Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	u := &User{ID: "u1", Email: "a@example.com"}

	other := TokenService{Secret: []byte("other-secret"), Issuer: "bookhub-test"}
	forged, _, err := other.Issue(u)
	require.NoError(t, err)
	_, err = testTokens().Parse(forged)
	assert.Error(t, err, "bad signature")

	wrongIssuer := TokenService{Secret: []byte("test-secret"), Issuer: "someone-else"}
	tok, _, err := wrongIssuer.Issue(u)
	require.NoError(t, err)
	_, err = testTokens().Parse(tok)
	assert.Error(t, err, "wrong issuer")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = testTokens().Parse(unsigned)
	assert.Error(t, err, "alg none")
}

func TestResolveSources(t *testing.T) {
	s, repo := newTestSessions(t)
	ctx := context.Background()
	alice := createUser(t, repo, "alice@example.com")
	bob := createUser(t, repo, "bob@example.com")

	aliceToken, _, err := s.Issue(alice)
	require.NoError(t, err)
	bobToken, _, err := s.Issue(bob)
	require.NoError(t, err)

	t.Run("bearer", func(t *testing.T) {
		u, ok := s.Resolve(ctx, fakeRequest{headers: map[string]string{"Authorization": "Bearer " + aliceToken}})
		require.True(t, ok)
		assert.Equal(t, alice.ID, u.ID)
	})

	t.Run("cookie", func(t *testing.T) {
		u, ok := s.Resolve(ctx, fakeRequest{cookies: map[string]string{"token": bobToken}})
		require.True(t, ok)
		assert.Equal(t, bob.ID, u.ID)
	})

	t.Run("bearer wins over cookie", func(t *testing.T) {
		u, ok := s.Resolve(ctx, fakeRequest{
			headers: map[string]string{"Authorization": "bearer " + aliceToken},
			cookies: map[string]string{"token": bobToken},
		})
		require.True(t, ok)
		assert.Equal(t, alice.ID, u.ID)
	})

	t.Run("trusted header wins over everything", func(t *testing.T) {
		u, ok := s.Resolve(ctx, fakeRequest{
			headers: map[string]string{HeaderUserID: bob.ID, "Authorization": "Bearer " + aliceToken},
		})
		require.True(t, ok)
		assert.Equal(t, bob.ID, u.ID)
	})

	t.Run("nothing", func(t *testing.T) {
		_, ok := s.Resolve(ctx, fakeRequest{})
		assert.False(t, ok)
	})
}

func TestResolveFailuresMeanNoIdentity(t *testing.T) {
	s, repo := newTestSessions(t)
	ctx := context.Background()
	alice := createUser(t, repo, "alice@example.com")

	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: alice.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "bookhub-test",
			Subject:   alice.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	ghostToken, _, err := s.Issue(&User{ID: "ghost", Email: "ghost@example.com"})
	require.NoError(t, err)

	staleToken, _, err := s.Issue(alice)
	require.NoError(t, err)
	_, err = repo.BumpTokenVersion(ctx, alice.ID)
	require.NoError(t, err)

	cases := map[string]Request{
		"malformed":      fakeRequest{headers: map[string]string{"Authorization": "Bearer not-a-jwt"}},
		"expired":        fakeRequest{cookies: map[string]string{"token": expiredToken}},
		"unknown user":   fakeRequest{cookies: map[string]string{"token": ghostToken}},
		"revoked":        fakeRequest{cookies: map[string]string{"token": staleToken}},
		"unknown header": fakeRequest{headers: map[string]string{HeaderUserID: "ghost"}},
		"wrong scheme":   fakeRequest{headers: map[string]string{"Authorization": "Basic " + staleToken}},
		"empty bearer":   fakeRequest{headers: map[string]string{"Authorization": "Bearer "}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			u, ok := s.Resolve(ctx, req)
			assert.False(t, ok)
			assert.Nil(t, u)
		})
	}
}

func TestSetCookieAndClear(t *testing.T) {
	s := &Sessions{Tokens: testTokens(), Secure: true}

	rec := httptest.NewRecorder()
	s.SetCookie(rec, "abc")
	res := rec.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "token", c.Name)
	assert.Equal(t, "abc", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	s.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestFromHTTP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	r.AddCookie(&http.Cookie{Name: "token", Value: "cookie-value"})

	req := FromHTTP(r)
	assert.Equal(t, "Bearer xyz", req.Header("Authorization"))
	assert.Equal(t, "cookie-value", req.Cookie("token"))
	assert.Equal(t, "", req.Cookie("missing"))
}

func TestFromMetadataOnlyTrustsBearer(t *testing.T) {
	sessions, repo := newTestSessions(t)
	u := createUser(t, repo, "meta@example.com")
	token, _, err := sessions.Issue(u)
	require.NoError(t, err)
	ctx := context.Background()

	got, ok := sessions.Resolve(ctx, FromMetadata(metadata.Pairs("authorization", "Bearer "+token)))
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)

	spoofed := metadata.Pairs("x-user-id", u.ID, "cookie", "token="+token)
	_, ok = sessions.Resolve(ctx, FromMetadata(spoofed))
	assert.False(t, ok)

	_, ok = sessions.Resolve(ctx, FromMetadata(nil))
	assert.False(t, ok)
}
