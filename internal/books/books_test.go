package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/internal/catalog"
	"bookhub/internal/logger"
	"bookhub/internal/testutil"
	"bookhub/internal/validation"
	"bookhub/pkg/models"
	"bookhub/pkg/retry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeCatalog struct {
	volumes   map[string]catalog.Volume
	searchErr error
	getErr    error
	searched  int
}

func (f *fakeCatalog) Search(_ context.Context, q string) ([]catalog.Volume, error) {
	f.searched++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var out []catalog.Volume
	for _, v := range f.volumes {
		if strings.Contains(strings.ToLower(v.Title), strings.ToLower(q)) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*catalog.Volume, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.volumes[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &v, nil
}

type fakeReviews struct {
	byBook map[string][]models.BookReview
}

func (f fakeReviews) ListByBook(_ context.Context, bookID string) ([]models.BookReview, error) {
	out := f.byBook[bookID]
	if out == nil {
		out = []models.BookReview{}
	}
	return out, nil
}

func newTestCache(t *testing.T) (*Cache, *Repo) {
	t.Helper()
	repo := NewRepo(testutil.SetupTestDB(t))
	return NewCache(repo, retry.Policy{Attempts: 3, Delay: 10 * time.Millisecond}, logger.Discard()), repo
}

func TestEnsureBookCreatesThenRefreshes(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	b, err := cache.EnsureBook(ctx, Input{
		ID: "B123", Title: "Dune", Authors: "Frank Herbert",
		Description: "Desert planet.", ThumbnailURL: "http://img/1",
	})
	require.NoError(t, err)
	assert.Equal(t, "B123", b.ID)
	assert.Equal(t, "Desert planet.", b.Description)

	b, err = cache.EnsureBook(ctx, Input{ID: "B123", Title: "Dune (Deluxe)", ThumbnailURL: "http://img/2"})
	require.NoError(t, err)
	assert.Equal(t, "Dune (Deluxe)", b.Title, "title refreshed")
	assert.Equal(t, "http://img/2", b.ThumbnailURL, "thumbnail refreshed")
	assert.Equal(t, "Frank Herbert", b.Authors, "missing authors keep stored value")
	assert.Equal(t, "Desert planet.", b.Description, "missing description keeps stored value")

	list, err := repo.ListRecent(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEnsureBookValidates(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.EnsureBook(context.Background(), Input{ID: " ", Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = cache.EnsureBook(context.Background(), Input{ID: "B1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestEnsureBookConcurrentFirstTouch(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := cache.EnsureBook(ctx, Input{ID: "B777", Title: fmt.Sprintf("Title %d", i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, testutil.Count(t, repo.DB, `SELECT COUNT(*) FROM books WHERE id = 'B777'`))
}

func TestEnsureBookSurfacesInternalAfterCancel(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.EnsureBook(ctx, Input{ID: "B1", Title: "x"})
	assert.Equal(t, http.StatusInternalServerError, apperr.HTTPStatus(err))
}

func TestPage(t *testing.T) {
	cache, repo := newTestCache(t)
	cat := &fakeCatalog{volumes: map[string]catalog.Volume{
		"B123": {ID: "B123", Title: "Dune", Authors: []string{"Frank Herbert", "Brian Herbert"}, Description: "Spice."},
	}}
	reviews := fakeReviews{byBook: map[string][]models.BookReview{
		"B123": {{ID: "rev-1", Rating: 4, Content: "Decent read.", Score: 1, VotesCount: 1}},
	}}
	svc := NewService(cat, cache, reviews, logger.Discard())
	ctx := context.Background()

	p, err := svc.Page(ctx, "B123")
	require.NoError(t, err)
	assert.Equal(t, "Dune", p.Title)
	require.Len(t, p.Local.Reviews, 1)
	assert.Equal(t, 1, p.Local.Reviews[0].Score)

	b, err := repo.GetByID(ctx, "B123")
	require.NoError(t, err)
	require.NotNil(t, b, "page view caches the book")
	assert.Equal(t, "Frank Herbert, Brian Herbert", b.Authors)

	_, err = svc.Page(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cat.getErr = errors.New("connection refused")
	_, err = svc.Page(ctx, "B123")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearch(t *testing.T) {
	cache, _ := newTestCache(t)
	cat := &fakeCatalog{volumes: map[string]catalog.Volume{
		"B1": {ID: "B1", Title: "Dune"},
		"B2": {ID: "B2", Title: "Dune Messiah"},
		"B3": {ID: "B3", Title: "Emma"},
	}}
	svc := NewService(cat, cache, fakeReviews{}, logger.Discard())
	ctx := context.Background()

	res := svc.Search(ctx, "dune")
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Results, 2)

	res = svc.Search(ctx, "   ")
	assert.Equal(t, 0, res.Total)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 1, cat.searched, "empty query never reaches the catalog")

	cat.searchErr = errors.New("503")
	res = svc.Search(ctx, "dune")
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Results)
}

func newTestHandler(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	cache, repo := newTestCache(t)
	cat := &fakeCatalog{volumes: map[string]catalog.Volume{
		"B123": {ID: "B123", Title: "Dune", Authors: []string{"Frank Herbert"}},
	}}
	svc := NewService(cat, cache, fakeReviews{}, logger.Discard())

	users := auth.NewRepo(repo.DB)
	require.NoError(t, users.CreateUser(context.Background(), auth.User{ID: "u1", Name: "Reader", Email: "r@example.com", PasswordHash: "x"}))
	tokens := auth.TokenService{Secret: []byte("s"), Issuer: "test"}
	sessions := auth.NewSessions(tokens, users, false, nil)
	u, err := users.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	token, _, err := sessions.Issue(u)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, repo, sessions, validation.New(), logger.Discard()).RegisterRoutes(r.Group("/api"))
	return r, token
}

func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerBookPage(t *testing.T) {
	r, _ := newTestHandler(t)

	rec := serve(r, http.MethodGet, "/api/books/B123", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "B123", page["id"])
	assert.Equal(t, []any{"Frank Herbert"}, page["authors"])
	local := page["local"].(map[string]any)
	assert.Equal(t, []any{}, local["reviews"])

	rec = serve(r, http.MethodGet, "/api/books/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"book not found"}`, rec.Body.String())
}

func TestHandlerSearch(t *testing.T) {
	r, _ := newTestHandler(t)

	rec := serve(r, http.MethodGet, "/api/search?q=", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[],"total":0}`, rec.Body.String())

	rec = serve(r, http.MethodGet, "/api/search?q=dune", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestHandlerCreateIsIdempotent(t *testing.T) {
	r, token := newTestHandler(t)
	body := `{"id":"B900","title":"Emma","authors":["Jane Austen"]}`

	rec := serve(r, http.MethodPost, "/api/books", body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodPost, "/api/books", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"authors":"Jane Austen"`)

	rec = serve(r, http.MethodPost, "/api/books", `{"id":"B900","title":"Other title"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Emma"`)

	rec = serve(r, http.MethodPost, "/api/books", `{"id":"B901"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLocalLookup(t *testing.T) {
	r, token := newTestHandler(t)
	require.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/api/books", `{"id":"B900","title":"Emma"}`, token).Code)

	rec := serve(r, http.MethodGet, "/api/books?id=B900", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"B900"`)

	rec = serve(r, http.MethodGet, "/api/books?id=nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(r, http.MethodGet, "/api/books", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestAuthorListUnmarshal(t *testing.T) {
	var a AuthorList
	require.NoError(t, json.Unmarshal([]byte(`"Jane Austen"`), &a))
	assert.Equal(t, AuthorList("Jane Austen"), a)

	require.NoError(t, json.Unmarshal([]byte(`["A","B"]`), &a))
	assert.Equal(t, AuthorList("A, B"), a)

	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
}
