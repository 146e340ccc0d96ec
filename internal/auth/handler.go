package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookhub/internal/apperr"
	"bookhub/internal/response"
	"bookhub/internal/validation"
	"bookhub/pkg/database"
)

type Handler struct {
	Repo      *Repo
	Sessions  *Sessions
	Validator *validation.Validator
	Log       *slog.Logger
}

func NewHandler(repo *Repo, sessions *Sessions, v *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{Repo: repo, Sessions: sessions, Validator: v, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
	rg.GET("/me", RequireUser(h.Sessions), h.me)
	rg.POST("/change-password", RequireUser(h.Sessions), h.changePassword)
}

type registerReq struct {
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type sessionResp struct {
	User      PublicUser `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt string     `json:"expiresAt"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, h.Log, apperr.Validation("invalid json"))
		return
	}
	// limits apply to the stored form
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	if err := h.Validator.Validate(req); err != nil {
		response.Error(c, h.Log, err)
		return
	}

	ctx := c.Request.Context()
	if u, err := h.Repo.GetByEmail(ctx, req.Email); err != nil {
		response.Error(c, h.Log, apperr.Internal("register failed", err))
		return
	} else if u != nil {
		response.Error(c, h.Log, apperr.Validation("email already registered"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("hash failed", err))
		return
	}

	u := &User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := h.Repo.CreateUser(ctx, *u); err != nil {
		// lost a race with a concurrent registration
		if database.IsUniqueViolation(err) {
			response.Error(c, h.Log, apperr.Validation("email already registered"))
			return
		}
		response.Error(c, h.Log, apperr.Internal("create user failed", err))
		return
	}

	h.Log.Info("user registered", "user_id", u.ID)
	h.startSession(c, http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := response.BindJSON(c, h.Validator, &req); err != nil {
		response.Error(c, h.Log, err)
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("login failed", err))
		return
	}
	// don't reveal which part failed
	if u == nil || !u.HasPassword() {
		response.Error(c, h.Log, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		response.Error(c, h.Log, apperr.Unauthorized("invalid credentials"))
		return
	}

	h.startSession(c, http.StatusOK, u)
}

func (h *Handler) startSession(c *gin.Context, status int, u *User) {
	token, exp, err := h.Sessions.Issue(u)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("token failed", err))
		return
	}
	h.Sessions.SetCookie(c.Writer, token)

	c.JSON(status, sessionResp{
		User:      u.Public(),
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

// logout always clears the cookie. When the caller is identified, every
// token issued to them so far is revoked as well.
func (h *Handler) logout(c *gin.Context) {
	if u, ok := h.Sessions.Resolve(c.Request.Context(), FromHTTP(c.Request)); ok {
		if _, err := h.Repo.BumpTokenVersion(c.Request.Context(), u.ID); err != nil {
			response.Error(c, h.Log, apperr.Internal("logout failed", err))
			return
		}
	}

	h.Sessions.Clear(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentUser(c).Public())
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := response.BindJSON(c, h.Validator, &req); err != nil {
		response.Error(c, h.Log, err)
		return
	}

	u := CurrentUser(c)
	if !u.HasPassword() {
		response.Error(c, h.Log, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.OldPassword)); err != nil {
		response.Error(c, h.Log, apperr.Unauthorized("invalid credentials"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		response.Error(c, h.Log, apperr.Internal("hash failed", err))
		return
	}

	version, err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.Error(c, h.Log, apperr.Unauthorized("unauthorized"))
			return
		}
		response.Error(c, h.Log, apperr.Internal("update password failed", err))
		return
	}

	// old tokens are now stale; hand out a fresh one
	u.PasswordHash = string(hash)
	u.TokenVersion = version
	h.startSession(c, http.StatusOK, u)
}
