package favorites

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/internal/response"
)

type Handler struct {
	Set      *Set
	Sessions *auth.Sessions
	Log      *slog.Logger
}

func NewHandler(set *Set, sessions *auth.Sessions, log *slog.Logger) *Handler {
	return &Handler{Set: set, Sessions: sessions, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/favorites", auth.RequireUser(h.Sessions))
	g.GET("", h.list)
	g.POST("", h.add)
	g.DELETE("", h.remove)
	g.GET("/:bookId", h.contains)
}

type favoriteReq struct {
	BookID string `json:"bookId"`
}

func bindBookID(c *gin.Context) (string, error) {
	var req favoriteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", apperr.Validation("invalid json")
	}
	return req.BookID, nil
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Set.List(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) add(c *gin.Context) {
	bookID, err := bindBookID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	f, err := h.Set.Add(c.Request.Context(), auth.CurrentUser(c).ID, bookID)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) remove(c *gin.Context) {
	bookID, err := bindBookID(c)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	if err := h.Set.Remove(c.Request.Context(), auth.CurrentUser(c).ID, bookID); err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed from favorites"})
}

func (h *Handler) contains(c *gin.Context) {
	ok, err := h.Set.Contains(c.Request.Context(), auth.CurrentUser(c).ID, c.Param("bookId"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": ok})
}
