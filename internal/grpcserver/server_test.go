package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"bookhub/internal/auth"
	"bookhub/internal/books"
	"bookhub/internal/favorites"
	"bookhub/internal/logger"
	"bookhub/internal/reviews"
	"bookhub/internal/testutil"
	"bookhub/internal/validation"
	"bookhub/internal/votes"
	"bookhub/pkg/retry"
)

func newTestClient(t *testing.T) (*Client, *fixture) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	log := logger.Discard()

	bookRepo := books.NewRepo(db)
	cache := books.NewCache(bookRepo, retry.DefaultPolicy(), log)
	reviewSvc := reviews.NewService(reviews.NewRepo(db), cache, validation.New(), nil, log)
	favSet := favorites.NewSet(favorites.NewRepo(db), nil, log)
	ledger := votes.NewLedger(db, nil, log)

	userRepo := auth.NewRepo(db)
	sessions := auth.NewSessions(auth.TokenService{
		Secret: []byte("test-secret"),
		Issuer: "bookhub-test",
	}, userRepo, false, nil)

	f := &fixture{
		alice: testutil.CreateUser(t, db, "Alice"),
		bob:   testutil.CreateUser(t, db, "Bob"),
	}
	f.aliceToken = issueToken(t, sessions, userRepo, f.alice)
	f.bobToken = issueToken(t, sessions, userRepo, f.bob)
	testutil.CreateBook(t, db, "B123", "Dune")
	testutil.CreateReview(t, db, "rev-1", "B123", f.alice, 4)
	testutil.CreateVote(t, db, "rev-1", f.bob, 1)
	_, err := favSet.Add(context.Background(), f.bob, "B123")
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := New(NewServer(bookRepo, reviewSvc, favSet, ledger, sessions), log)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn), f
}

type fixture struct {
	alice, bob           string
	aliceToken, bobToken string
}

func issueToken(t *testing.T, sessions *auth.Sessions, repo *auth.Repo, userID string) string {
	t.Helper()
	u, err := repo.GetByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, u)
	token, _, err := sessions.Issue(u)
	require.NoError(t, err)
	return token
}

func TestGetBook(t *testing.T) {
	client, f := newTestClient(t)

	resp, err := client.GetBook(context.Background(), &GetBookRequest{ID: "B123"})
	require.NoError(t, err)
	assert.Equal(t, "Dune", resp.Book.Title)
	require.Len(t, resp.Reviews, 1)
	assert.Equal(t, "rev-1", resp.Reviews[0].ID)
	assert.Equal(t, f.alice, resp.Reviews[0].User.ID)
	assert.Equal(t, 1, resp.Reviews[0].Score)

	_, err = client.GetBook(context.Background(), &GetBookRequest{ID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetBook(context.Background(), &GetBookRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestListFavorites(t *testing.T) {
	client, f := newTestClient(t)
	ctx := context.Background()

	resp, err := client.ListFavorites(WithToken(ctx, f.bobToken), &ListFavoritesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Favorites, 1)
	assert.Equal(t, "Dune", resp.Favorites[0].Book.Title)

	resp, err = client.ListFavorites(WithToken(ctx, f.aliceToken), &ListFavoritesRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Favorites)
}

func TestListFavoritesRequiresSession(t *testing.T) {
	client, f := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{"no token", ctx},
		{"garbage token", WithToken(ctx, "not-a-jwt")},
		{"identity header only", metadata.AppendToOutgoingContext(ctx, "x-user-id", f.bob)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ListFavorites(tt.ctx, &ListFavoritesRequest{})
			assert.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}
}

func TestGetReviewScore(t *testing.T) {
	client, _ := newTestClient(t)

	score, err := client.GetReviewScore(context.Background(), &GetReviewScoreRequest{ReviewID: "rev-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, score.Score)
	assert.Equal(t, 1, score.VotesCount)

	_, err = client.GetReviewScore(context.Background(), &GetReviewScoreRequest{ReviewID: "rev-x"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
