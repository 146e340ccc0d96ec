package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeCatalog(t *testing.T, hits *atomic.Int32, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/volumes":
			assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
			assert.Equal(t, "secret-key", r.URL.Query().Get("key"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"totalItems": 2,
				"items": []any{
					map[string]any{"id": "B123", "volumeInfo": map[string]any{
						"title":      "Dune",
						"authors":    []string{"Frank Herbert"},
						"imageLinks": map[string]any{"smallThumbnail": "http://img/small", "thumbnail": "http://img/big"},
					}},
					map[string]any{"id": "B456", "volumeInfo": map[string]any{
						"title":      "Untitled Notes",
						"imageLinks": map[string]any{"smallThumbnail": "http://img/only-small"},
					}},
				},
			})
		case r.URL.Path == "/volumes/B123":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "B123", "volumeInfo": map[string]any{
				"title":       "Dune",
				"authors":     []string{"Frank Herbert", "Someone Else"},
				"description": "Desert planet.",
			}})
		case strings.HasPrefix(r.URL.Path, "/volumes/"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404}}`))
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearch(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 0)
	c := New(Config{BaseURL: srv.URL + "/volumes", APIKey: "secret-key"})

	vols, err := c.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, vols, 2)

	assert.Equal(t, "B123", vols[0].ID)
	assert.Equal(t, "http://img/big", vols[0].Thumbnail, "thumbnail preferred")
	assert.Equal(t, "http://img/only-small", vols[1].Thumbnail, "falls back to smallThumbnail")
	assert.Equal(t, []string{}, vols[1].Authors)
}

func TestGet(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 0)
	c := New(Config{BaseURL: srv.URL + "/volumes"})

	v, err := c.Get(context.Background(), "B123")
	require.NoError(t, err)
	assert.Equal(t, "Dune", v.Title)
	assert.Equal(t, "Frank Herbert, Someone Else", v.AuthorLine())
	assert.Equal(t, "Desert planet.", v.Description)
	assert.Empty(t, v.Thumbnail)

	_, err = c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Get(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchNon2xxIsError(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 0)
	c := New(Config{BaseURL: srv.URL + "/elsewhere"})

	_, err := c.Search(context.Background(), "dune")
	assert.Error(t, err)
}

func TestGetCollapsesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 100*time.Millisecond)
	c := New(Config{BaseURL: srv.URL + "/volumes"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "B123")
			assert.NoError(t, err)
			assert.Equal(t, "B123", v.ID)
		}()
	}
	wg.Wait()

	assert.Less(t, int(hits.Load()), 8)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 0)
	c := New(Config{BaseURL: srv.URL + "/volumes", RPS: 0.001, Burst: 1})

	_, err := c.Get(context.Background(), "B123")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "B123")
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetSurvivesOneCallerCancelling(t *testing.T) {
	var hits atomic.Int32
	srv := fakeCatalog(t, &hits, 200*time.Millisecond)
	c := New(Config{BaseURL: srv.URL + "/volumes"})

	leaving, cancel := context.WithCancel(context.Background())
	leftErr := make(chan error, 1)
	go func() {
		_, err := c.Get(leaving, "B123")
		leftErr <- err
	}()

	// join the in-flight request, then drop the first caller
	time.Sleep(30 * time.Millisecond)
	stayed := make(chan *Volume, 1)
	stayedErr := make(chan error, 1)
	go func() {
		v, err := c.Get(context.Background(), "B123")
		stayed <- v
		stayedErr <- err
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-leftErr, context.Canceled)

	require.NoError(t, <-stayedErr)
	v := <-stayed
	require.NotNil(t, v)
	assert.Equal(t, "Dune", v.Title)
	assert.Equal(t, int32(1), hits.Load())
}
