package votes

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"bookhub/internal/apperr"
	"bookhub/internal/auth"
	"bookhub/internal/response"
)

type Handler struct {
	Ledger   *Ledger
	Sessions *auth.Sessions
	Log      *slog.Logger
}

func NewHandler(l *Ledger, sessions *auth.Sessions, log *slog.Logger) *Handler {
	return &Handler{Ledger: l, Sessions: sessions, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reviews/:id/vote", auth.RequireUser(h.Sessions), h.cast)
}

type castReq struct {
	Value int `json:"value"`
}

func (h *Handler) cast(c *gin.Context) {
	var req castReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.Log, apperr.Validation("invalid vote value"))
		return
	}

	score, err := h.Ledger.Cast(c.Request.Context(), auth.CurrentUser(c).ID, c.Param("id"), req.Value)
	if err != nil {
		response.Error(c, h.Log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "review": score})
}
