// Package grpcserver serves a read-only view of the library over gRPC,
// using a JSON codec in place of generated protobuf messages.
package grpcserver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/pkg/models"
)

type BookStore interface {
	GetByID(ctx context.Context, id string) (*models.Book, error)
}

type ReviewLister interface {
	ListByBook(ctx context.Context, bookID string) ([]models.BookReview, error)
}

type FavoriteLister interface {
	List(ctx context.Context, userID string) ([]models.Favorite, error)
}

type ScoreReader interface {
	Score(ctx context.Context, reviewID string) (*models.ReviewScore, error)
}

type SessionResolver interface {
	Resolve(ctx context.Context, req auth.Request) (*auth.User, bool)
}

type Server struct {
	Books     BookStore
	Reviews   ReviewLister
	Favorites FavoriteLister
	Scores    ScoreReader
	Sessions  SessionResolver
}

func NewServer(books BookStore, reviews ReviewLister, favorites FavoriteLister, scores ScoreReader, sessions SessionResolver) *Server {
	return &Server{Books: books, Reviews: reviews, Favorites: favorites, Scores: scores, Sessions: sessions}
}

// caller resolves the session carried in the "authorization" metadata.
func (s *Server) caller(ctx context.Context) (*auth.User, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	u, ok := s.Sessions.Resolve(ctx, auth.FromMetadata(md))
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "token required")
	}
	return u, nil
}

func (s *Server) GetBook(ctx context.Context, req *GetBookRequest) (*GetBookResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	book, err := s.Books.GetByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if book == nil {
		return nil, status.Error(codes.NotFound, "book not found")
	}

	reviews, err := s.Reviews.ListByBook(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBookResponse{Book: *book, Reviews: reviews}, nil
}

// ListFavorites returns the caller's own favorites.
func (s *Server) ListFavorites(ctx context.Context, _ *ListFavoritesRequest) (*ListFavoritesResponse, error) {
	u, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.Favorites.List(ctx, u.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListFavoritesResponse{Favorites: list}, nil
}

func (s *Server) GetReviewScore(ctx context.Context, req *GetReviewScoreRequest) (*models.ReviewScore, error) {
	reviewID := strings.TrimSpace(req.ReviewID)
	if reviewID == "" {
		return nil, status.Error(codes.InvalidArgument, "reviewId required")
	}

	score, err := s.Scores.Score(ctx, reviewID)
	if err != nil {
		return nil, toStatus(err)
	}
	return score, nil
}

// toStatus maps a coded error onto the matching gRPC status.
func toStatus(err error) error {
	msg := apperr.PublicMessage(err)
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		return status.Error(codes.InvalidArgument, msg)
	case apperr.CodeUnauthorized:
		return status.Error(codes.Unauthenticated, msg)
	case apperr.CodeForbidden:
		return status.Error(codes.PermissionDenied, msg)
	case apperr.CodeNotFound:
		return status.Error(codes.NotFound, msg)
	case apperr.CodeConflict:
		return status.Error(codes.AlreadyExists, msg)
	case apperr.CodeRateLimited:
		return status.Error(codes.ResourceExhausted, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// LoggingInterceptor logs each call with its status code and duration.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		level := slog.LevelInfo
		if status.Code(err) == codes.Internal {
			level = slog.LevelError
		}
		log.Log(ctx, level, "grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// New builds a grpc.Server with the library service registered.
func New(srv LibraryServer, log *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	RegisterLibraryServer(s, srv)
	return s
}
