package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mxteam/mediabot/internal/domain"
	"github.com/mxteam/mediabot/internal/platform"
	"github.com/mxteam/mediabot/internal/services"
)

// AdminHandler exposes operator endpoints for session lifecycle and usage
// statistics. Everything except login sits behind the operator token.
type AdminHandler struct {
	auth      services.OperatorAuthService
	sessions  *services.SessionManager
	userSvc   *services.UserService
	users     domain.UserRepository
	downloads domain.DownloadRepository
	links     domain.LinkedAccountRepository
	render    *ErrorRenderer
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(
	auth services.OperatorAuthService,
	sessions *services.SessionManager,
	userSvc *services.UserService,
	users domain.UserRepository,
	downloads domain.DownloadRepository,
	links domain.LinkedAccountRepository,
	render *ErrorRenderer,
) *AdminHandler {
	return &AdminHandler{
		auth:      auth,
		sessions:  sessions,
		userSvc:   userSvc,
		users:     users,
		downloads: downloads,
		links:     links,
		render:    render,
	}
}

// RegisterRoutes registers admin routes on the router group.
func (h *AdminHandler) RegisterRoutes(router *gin.Engine, authMW gin.HandlerFunc) {
	admin := router.Group("/api/admin")
	admin.POST("/login", h.Login)

	protected := admin.Group("")
	protected.Use(authMW)
	{
		protected.POST("/sessions/:account/login", h.SessionLogin)
		protected.POST("/sessions/:account/challenge", h.SessionChallenge)
		protected.POST("/sessions/:account/import", h.SessionImport)
		protected.GET("/sessions/:account", h.SessionStatus)
		protected.DELETE("/sessions/:account", h.SessionLogout)
		protected.POST("/users/:id/ban", h.BanUser)
		protected.DELETE("/users/:id/ban", h.UnbanUser)
		protected.GET("/stats", h.Stats)
	}
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login authenticates the operator and returns a bearer token.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.render.Render(c, domain.NewValidationError("INVALID_REQUEST", "password is required", nil))
		return
	}

	token, err := h.auth.Login(req.Password)
	if err != nil {
		h.render.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"token": token}})
}

type sessionLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionLogin starts a fresh platform login for the managed account. A
// challenge-required answer is a normal outcome, not a failure.
func (h *AdminHandler) SessionLogin(c *gin.Context) {
	var req sessionLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.render.Render(c, domain.NewValidationError("INVALID_REQUEST", "username and password are required", nil))
		return
	}

	accountID := c.Param("account")
	ref, err := h.sessions.Login(c.Request.Context(), accountID, platform.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if domain.HasCode(err, domain.CodeAuthChallenge) {
			c.JSON(http.StatusAccepted, gin.H{
				"success": true,
				"data":    gin.H{"status": string(domain.SessionChallengeRequired)},
			})
			return
		}
		h.render.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": sessionRefResponse(ref)})
}

type challengeRequest struct {
	Proof string `json:"proof" binding:"required"`
}

// SessionChallenge submits the out-of-band proof for a pending login challenge.
func (h *AdminHandler) SessionChallenge(c *gin.Context) {
	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.render.Render(c, domain.NewValidationError("INVALID_REQUEST", "proof is required", nil))
		return
	}

	ref, err := h.sessions.ResumeChallenge(c.Request.Context(), c.Param("account"), req.Proof)
	if err != nil {
		h.render.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": sessionRefResponse(ref)})
}

type importRequest struct {
	Blob []byte `json:"blob" binding:"required"`
}

// SessionImport adopts an externally exported session blob.
func (h *AdminHandler) SessionImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.render.Render(c, domain.NewValidationError("INVALID_REQUEST", "blob is required", nil))
		return
	}

	ref, err := h.sessions.ImportSession(c.Request.Context(), c.Param("account"), req.Blob)
	if err != nil {
		h.render.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": sessionRefResponse(ref)})
}

// SessionStatus reports the account's live session state. The check touches
// the platform, so the answer is current rather than cached.
func (h *AdminHandler) SessionStatus(c *gin.Context) {
	accountID := c.Param("account")
	valid := h.sessions.Validate(c.Request.Context(), accountID)
	ref := h.sessions.Status(accountID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"account_id":     ref.AccountID,
			"status":         string(ref.Status),
			"valid":          valid,
			"last_validated": ref.LastValidated,
		},
	})
}

// SessionLogout drops the account's session and its persisted blob.
func (h *AdminHandler) SessionLogout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), c.Param("account")); err != nil {
		h.render.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BanUser blocks a user from the service.
func (h *AdminHandler) BanUser(c *gin.Context) {
	h.setBanned(c, true)
}

// UnbanUser lifts a ban.
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	h.setBanned(c, false)
}

func (h *AdminHandler) setBanned(c *gin.Context, banned bool) {
	if err := h.userSvc.SetBanned(c.Request.Context(), c.Param("id"), banned); err != nil {
		h.render.Render(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Stats returns aggregate usage counters.
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	userCount, err := h.users.Count(ctx)
	if err != nil {
		h.render.Render(c, err)
		return
	}
	downloadCount, err := h.downloads.Count(ctx)
	if err != nil {
		h.render.Render(c, err)
		return
	}
	linkCount, err := h.links.Count(ctx)
	if err != nil {
		h.render.Render(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"users":           userCount,
			"downloads":       downloadCount,
			"linked_accounts": linkCount,
		},
	})
}

func sessionRefResponse(ref *domain.SessionRef) gin.H {
	return gin.H{
		"account_id":     ref.AccountID,
		"status":         string(ref.Status),
		"last_validated": ref.LastValidated,
	}
}
