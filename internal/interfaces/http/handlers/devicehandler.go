package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/dto"
	"github.com/nimbus-inc/nimbus/internal/application/entitlement/usecases"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// DeviceHandler serves device registration, which may precede any claim.
type DeviceHandler struct {
	registerDeviceUseCase *usecases.RegisterDeviceUseCase
	logger                logger.Interface
}

func NewDeviceHandler(registerDeviceUC *usecases.RegisterDeviceUseCase, logger logger.Interface) *DeviceHandler {
	return &DeviceHandler{
		registerDeviceUseCase: registerDeviceUC,
		logger:                logger,
	}
}

type RegisterDeviceRequest struct {
	UID        string          `json:"uid" binding:"required" validate:"required,max=64"`
	DeviceID   string          `json:"device_id" binding:"required" validate:"required,max=96"`
	DeviceInfo *dto.DeviceInfo `json:"device_info"`
}

func (h *DeviceHandler) Register(c *gin.Context) {
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := usecases.RegisterDeviceCommand{
		UID:        req.UID,
		DeviceID:   req.DeviceID,
		DeviceInfo: req.DeviceInfo,
	}

	result, err := h.registerDeviceUseCase.Execute(c.Request.Context(), cmd)
	if err != nil {
		h.logger.Warnw("device registration failed", "uid", req.UID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "device registered", result)
}
