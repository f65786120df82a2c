package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/usecases"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/auth"
	"github.com/nimbus-inc/nimbus/internal/shared/config"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// AdminHandler serves operator login and the administrative ledger operations.
type AdminHandler struct {
	resetUserUseCase *usecases.ResetUserUseCase
	clearCodeUseCase *usecases.ClearCodeUseCase
	tokenService     *auth.AdminTokenService
	hasher           *auth.CredentialHasher
	adminCredential  config.AdminCredentialConfig
	logger           logger.Interface
}

func NewAdminHandler(
	resetUserUC *usecases.ResetUserUseCase,
	clearCodeUC *usecases.ClearCodeUseCase,
	tokenService *auth.AdminTokenService,
	hasher *auth.CredentialHasher,
	adminCredential config.AdminCredentialConfig,
	logger logger.Interface,
) *AdminHandler {
	return &AdminHandler{
		resetUserUseCase: resetUserUC,
		clearCodeUseCase: clearCodeUC,
		tokenService:     tokenService,
		hasher:           hasher,
		adminCredential:  adminCredential,
		logger:           logger,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ResetUserRequest struct {
	// AlsoRemoveRedemption defaults to true; sending false keeps the marker.
	AlsoRemoveRedemption *bool `json:"also_remove_redemption"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username != h.adminCredential.Username ||
		h.hasher.Verify(req.Password, h.adminCredential.PasswordHash) != nil {
		h.logger.Warnw("admin login rejected", "username", req.Username, "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresIn, err := h.tokenService.Generate(req.Username)
	if err != nil {
		h.logger.Errorw("failed to issue admin token", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "login successful", gin.H{
		"access_token": token,
		"expires_in":   expiresIn,
	})
}

func (h *AdminHandler) ResetUser(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "uid is required")
		return
	}

	var req ResetUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	alsoRemove := true
	if req.AlsoRemoveRedemption != nil {
		alsoRemove = *req.AlsoRemoveRedemption
	}

	cmd := usecases.ResetUserCommand{
		UID:                  uid,
		AlsoRemoveRedemption: alsoRemove,
	}

	result, err := h.resetUserUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("admin user reset failed", "uid", uid, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "user reset", result)
}

func (h *AdminHandler) ClearCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "code is required")
		return
	}

	result, err := h.clearCodeUseCase.Execute(c.Request.Context(), usecases.ClearCodeCommand{Code: code})
	if err != nil {
		h.logger.Warnw("admin code clear failed", "code", code, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "code cleared", result)
}
