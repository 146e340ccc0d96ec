package reviews

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/internal/response"
)

type Handler struct {
	Service  *Service
	Sessions *auth.Sessions
	Log      *slog.Logger
}

func NewHandler(svc *Service, sessions *auth.Sessions, log *slog.Logger) *Handler {
	return &Handler{Service: svc, Sessions: sessions, Log: log}
}

var errInvalidJSON = apperr.Validation("invalid json")

// RegisterRoutes mounts /reviews on the /api group. Every route needs a
// session.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/reviews", auth.RequireUser(h.Sessions))
	g.POST("", h.create)
	g.GET("/user", h.listMine)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.Log, errInvalidJSON)
		return
	}

	rv, err := h.Service.Create(c.Request.Context(), auth.CurrentUser(c).ID, req)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "review created", "review": rv})
}

func (h *Handler) update(c *gin.Context) {
	ctx := c.Request.Context()
	userID, reviewID := auth.CurrentUser(c).ID, c.Param("id")

	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		// ownership outranks a malformed body
		if err := h.Service.CheckEditable(ctx, userID, reviewID); err != nil {
			response.Error(c, h.Log, err)
			return
		}
		response.Error(c, h.Log, errInvalidJSON)
		return
	}

	rv, err := h.Service.Update(ctx, userID, reviewID, req)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	c.JSON(http.StatusOK, rv)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), auth.CurrentUser(c).ID, c.Param("id")); err != nil {
		response.Error(c, h.Log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}

func (h *Handler) listMine(c *gin.Context) {
	list, err := h.Service.ListByUser(c.Request.Context(), auth.CurrentUser(c).ID)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	c.JSON(http.StatusOK, list)
}
