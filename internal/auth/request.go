package auth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Request is the part of an inbound request that session resolution reads.
type Request interface {
	Header(name string) string
	Cookie(name string) string
}

// FromHTTP adapts an *http.Request.
func FromHTTP(r *http.Request) Request {
	return httpRequest{r: r}
}

type httpRequest struct {
	r *http.Request
}

func (h httpRequest) Header(name string) string {
	return h.r.Header.Get(name)
}

func (h httpRequest) Cookie(name string) string {
	c, err := h.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// FromMetadata adapts incoming gRPC metadata. Only the authorization entry
// is exposed: nothing in front of the gRPC listener strips client-supplied
// identity headers, so they are never trusted here.
func FromMetadata(md metadata.MD) Request {
	return grpcRequest{md: md}
}

type grpcRequest struct {
	md metadata.MD
}

func (g grpcRequest) Header(name string) string {
	if !strings.EqualFold(name, "Authorization") {
		return ""
	}
	if v := g.md.Get("authorization"); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (grpcRequest) Cookie(string) string { return "" }
