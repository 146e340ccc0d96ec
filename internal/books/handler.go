package books

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/internal/response"
	"bookhub/internal/validation"
)

type Handler struct {
	Service   *Service
	Repo      *Repo
	Sessions  *auth.Sessions
	Validator *validation.Validator
	Log       *slog.Logger
}

func NewHandler(svc *Service, repo *Repo, sessions *auth.Sessions, v *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{Service: svc, Repo: repo, Sessions: sessions, Validator: v, Log: log}
}

// RegisterRoutes mounts /books and /search on the /api group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/books", h.listLocal)
	rg.GET("/books/:id", h.page)
	rg.POST("/books", auth.RequireUser(h.Sessions), h.create)
}

func (h *Handler) search(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Search(c.Request.Context(), c.Query("q")))
}

func (h *Handler) page(c *gin.Context) {
	p, err := h.Service.Page(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// listLocal serves ?id= lookups of a cached book, or the latest cached
// books when no id is given.
func (h *Handler) listLocal(c *gin.Context) {
	ctx := c.Request.Context()

	if id := strings.TrimSpace(c.Query("id")); id != "" {
		b, err := h.Repo.GetByID(ctx, id)
		if err != nil {
			response.Error(c, h.Log, apperr.Internal("get book failed", err))
			return
		}
		if b == nil {
			response.Error(c, h.Log, apperr.NotFound("book not found"))
			return
		}
		c.JSON(http.StatusOK, b)
		return
	}

	list, err := h.Repo.ListRecent(ctx, 20)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("list books failed", err))
		return
	}
	c.JSON(http.StatusOK, list)
}

// AuthorList accepts either a display string or a JSON array of names.
type AuthorList string

func (a *AuthorList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = AuthorList(strings.TrimSpace(s))
		return nil
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	*a = AuthorList(strings.Join(names, ", "))
	return nil
}

type createReq struct {
	ID           string     `json:"id" validate:"required,max=128"`
	Title        string     `json:"title" validate:"required,max=1000"`
	Authors      AuthorList `json:"authors"`
	Description  string     `json:"description"`
	ThumbnailURL string     `json:"thumbnailUrl" validate:"omitempty,url"`
}

// create is idempotent: 201 with the new book, or 200 with the stored one.
func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := response.BindJSON(c, h.Validator, &req); err != nil {
		response.Error(c, h.Log, err)
		return
	}

	ctx := c.Request.Context()
	created, err := h.Repo.InsertIfAbsent(ctx, Input{
		ID:           strings.TrimSpace(req.ID),
		Title:        strings.TrimSpace(req.Title),
		Authors:      string(req.Authors),
		Description:  req.Description,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("create book failed", err))
		return
	}

	b, err := h.Repo.GetByID(ctx, strings.TrimSpace(req.ID))
	if err != nil || b == nil {
		response.Error(c, h.Log, apperr.Internal("create book failed", err))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, b)
}
