package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"bookhub/pkg/models"
)

const serviceName = "bookhub.Library"

type GetBookRequest struct {
	ID string `json:"id"`
}

type GetBookResponse struct {
	Book    models.Book         `json:"book"`
	Reviews []models.BookReview `json:"reviews"`
}

// ListFavoritesRequest lists the favorites of the authenticated caller.
type ListFavoritesRequest struct{}

type ListFavoritesResponse struct {
	Favorites []models.Favorite `json:"favorites"`
}

type GetReviewScoreRequest struct {
	ReviewID string `json:"reviewId"`
}

// LibraryServer is the read-only library API.
type LibraryServer interface {
	GetBook(context.Context, *GetBookRequest) (*GetBookResponse, error)
	ListFavorites(context.Context, *ListFavoritesRequest) (*ListFavoritesResponse, error)
	GetReviewScore(context.Context, *GetReviewScoreRequest) (*models.ReviewScore, error)
}

func RegisterLibraryServer(s grpc.ServiceRegistrar, srv LibraryServer) {
	s.RegisterService(&LibraryServiceDesc, srv)
}

var LibraryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LibraryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetBook",
			Handler: unary("GetBook", func(ctx context.Context, srv LibraryServer, in *GetBookRequest) (any, error) {
				return srv.GetBook(ctx, in)
			}),
		},
		{
			MethodName: "ListFavorites",
			Handler: unary("ListFavorites", func(ctx context.Context, srv LibraryServer, in *ListFavoritesRequest) (any, error) {
				return srv.ListFavorites(ctx, in)
			}),
		},
		{
			MethodName: "GetReviewScore",
			Handler: unary("GetReviewScore", func(ctx context.Context, srv LibraryServer, in *GetReviewScoreRequest) (any, error) {
				return srv.GetReviewScore(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bookhub/library.json",
}

// unary adapts a typed method to grpc.MethodHandler, honoring any
// configured interceptor.
func unary[Req any](method string, call func(context.Context, LibraryServer, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, srv.(LibraryServer), in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(ctx, srv.(LibraryServer), req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Client calls bookhub.Library with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// WithToken attaches a session token to outgoing calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}

func (c *Client) GetBook(ctx context.Context, in *GetBookRequest, opts ...grpc.CallOption) (*GetBookResponse, error) {
	out := new(GetBookResponse)
	if err := c.invoke(ctx, "GetBook", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListFavorites(ctx context.Context, in *ListFavoritesRequest, opts ...grpc.CallOption) (*ListFavoritesResponse, error) {
	out := new(ListFavoritesResponse)
	if err := c.invoke(ctx, "ListFavorites", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReviewScore(ctx context.Context, in *GetReviewScoreRequest, opts ...grpc.CallOption) (*models.ReviewScore, error) {
	out := new(models.ReviewScore)
	if err := c.invoke(ctx, "GetReviewScore", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
