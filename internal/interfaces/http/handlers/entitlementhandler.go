package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/application/entitlement/usecases"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// EntitlementHandler serves the client-facing grant operations.
type EntitlementHandler struct {
	applyTokenUseCase    *usecases.ApplyTokenUseCase
	claimDeviceUseCase   *usecases.ClaimDeviceUseCase
	releaseDeviceUseCase *usecases.ReleaseDeviceUseCase
	codeSummaryUseCase   *usecases.GetCodeSummaryUseCase
	logger               logger.Interface
}

func NewEntitlementHandler(
	applyTokenUC *usecases.ApplyTokenUseCase,
	claimDeviceUC *usecases.ClaimDeviceUseCase,
	releaseDeviceUC *usecases.ReleaseDeviceUseCase,
	codeSummaryUC *usecases.GetCodeSummaryUseCase,
	logger logger.Interface,
) *EntitlementHandler {
	return &EntitlementHandler{
		applyTokenUseCase:    applyTokenUC,
		claimDeviceUseCase:   claimDeviceUC,
		releaseDeviceUseCase: releaseDeviceUC,
		codeSummaryUseCase:   codeSummaryUC,
		logger:               logger,
	}
}

// Field bounds follow the column sizes; oversized identifiers are refused at
// the edge instead of erroring inside the transaction.
type ApplyTokenRequest struct {
	UID      string `json:"uid" binding:"required" validate:"required,max=64"`
	Token    string `json:"token" binding:"required" validate:"required,max=64"`
	DeviceID string `json:"device_id" binding:"required" validate:"required,max=96"`
}

type ClaimDeviceRequest struct {
	UID        string          `json:"uid" binding:"required" validate:"required,max=64"`
	Code       string          `json:"code" binding:"required" validate:"required,max=64"`
	DeviceID   string          `json:"device_id" binding:"required" validate:"required,max=96"`
	DeviceInfo *dto.DeviceInfo `json:"device_info"`
}

type ReleaseDeviceRequest struct {
	UID      string `json:"uid" binding:"required" validate:"required,max=64"`
	Code     string `json:"code" binding:"required" validate:"required,max=64"`
	DeviceID string `json:"device_id" binding:"required" validate:"required,max=96"`
}

func (h *EntitlementHandler) ApplyToken(c *gin.Context) {
	var req ApplyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ApplyTokenCommand{
		UID:      req.UID,
		Token:    req.Token,
		DeviceID: req.DeviceID,
	}

	result, err := h.applyTokenUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("token application failed", "uid", req.UID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "token applied", result)
}

func (h *EntitlementHandler) ClaimDevice(c *gin.Context) {
	var req ClaimDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ClaimDeviceCommand{
		UID:        req.UID,
		Code:       req.Code,
		DeviceID:   req.DeviceID,
		DeviceInfo: req.DeviceInfo,
	}

	result, err := h.claimDeviceUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("device claim failed", "uid", req.UID, "code", req.Code, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "device claimed", result)
}

func (h *EntitlementHandler) ReleaseDevice(c *gin.Context) {
	var req ReleaseDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.ReleaseDeviceCommand{
		UID:      req.UID,
		Code:     req.Code,
		DeviceID: req.DeviceID,
	}

	result, err := h.releaseDeviceUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("device release failed", "uid", req.UID, "code", req.Code, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "device released", result)
}

func (h *EntitlementHandler) GetCodeSummary(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "code is required")
		return
	}

	result, err := h.codeSummaryUseCase.Execute(c.Request.Context(), usecases.GetCodeSummaryQuery{Code: code})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", result)
}
