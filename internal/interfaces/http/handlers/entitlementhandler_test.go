package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nimbus-inc/nimbus/internal/application/entitlement/usecases"
	"github.com/nimbus-inc/nimbus/internal/domain/entitlement"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/persistence/models"
	"github.com/nimbus-inc/nimbus/internal/infrastructure/repository"
	"github.com/nimbus-inc/nimbus/internal/shared/db"
	"github.com/nimbus-inc/nimbus/internal/shared/logger"
	"github.com/nimbus-inc/nimbus/internal/shared/utils"
)

// entitlementTestStack runs the handler against the real use cases and an
// in-memory database, so the wire contract is tested end to end.
type entitlementTestStack struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newEntitlementTestStack(t *testing.T) *entitlementTestStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(
		&models.CodeModel{},
		&models.CodeDeviceModel{},
		&models.TokenModel{},
		&models.UserModel{},
		&models.UserDeviceModel{},
		&models.RedemptionModel{},
	))

	log := logger.NewLogger()
	txManager := db.NewTransactionManager(database)
	directory := repository.NewDirectory(database, log)
	codeRepo := repository.NewCodeRepository(database, log)
	codeDeviceRepo := repository.NewCodeDeviceRepository(database, log)
	tokenRepo := repository.NewTokenRepository(database, log)
	userRepo := repository.NewUserRepository(database, log)
	userDeviceRepo := repository.NewUserDeviceRepository(database, log)
	redemptionRepo := repository.NewRedemptionRepository(database, log)
	reconciler := usecases.NewDowngradeReconciler(userRepo, userDeviceRepo, log)

	handler := NewEntitlementHandler(
		usecases.NewApplyTokenUseCase(directory, tokenRepo, userRepo, userDeviceRepo, txManager, 3, log),
		usecases.NewClaimDeviceUseCase(directory, codeRepo, codeDeviceRepo, userRepo, userDeviceRepo, redemptionRepo, txManager, nil, 3, log),
		usecases.NewReleaseDeviceUseCase(directory, codeRepo, codeDeviceRepo, userDeviceRepo, reconciler, txManager, nil, 3, log),
		usecases.NewGetCodeSummaryUseCase(directory, nil, time.Second, log),
		log,
	)

	engine := gin.New()
	api := engine.Group("/api/v1/entitlements")
	api.POST("/token/apply", handler.ApplyToken)
	api.POST("/devices/claim", handler.ClaimDevice)
	api.POST("/devices/release", handler.ReleaseDevice)
	api.GET("/codes/:code/summary", handler.GetCodeSummary)

	return &entitlementTestStack{engine: engine, db: database}
}

func (s *entitlementTestStack) seedCode(t *testing.T, code string, maxDevices int) {
	t.Helper()
	require.NoError(t, s.db.Create(&models.CodeModel{
		Code:         code,
		PlanType:     "pro",
		MaxDevices:   maxDevices,
		ValidForDays: 30,
		Version:      1,
	}).Error)
}

func (s *entitlementTestStack) seedToken(t *testing.T, token string, maxDevices int) {
	t.Helper()
	require.NoError(t, s.db.Create(&models.TokenModel{
		Token:        token,
		TokenType:    "plus",
		DurationDays: 30,
		MaxDevices:   maxDevices,
		IsActive:     true,
		Version:      1,
	}).Error)
}

func (s *entitlementTestStack) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.engine.ServeHTTP(recorder, req)
	return recorder
}

func (s *entitlementTestStack) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	s.engine.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	return resp
}

func TestEntitlementHandler_ClaimDevice(t *testing.T) {
	stack := newEntitlementTestStack(t)
	stack.seedCode(t, "NIM-HTTP-1", 1)

	t.Run("successful claim", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/devices/claim", gin.H{
			"uid":       "user-1",
			"code":      "NIM-HTTP-1",
			"device_id": "device-a",
			"device_info": gin.H{
				"platform": "ios",
				"model":    "iPhone15",
			},
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["active_devices"])
		assert.Equal(t, true, data["is_used"])
		assert.NotEmpty(t, data["expires_at"])
	})

	t.Run("capacity refused with business code", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/devices/claim", gin.H{
			"uid":       "user-2",
			"code":      "NIM-HTTP-1",
			"device_id": "device-b",
		})
		require.Equal(t, http.StatusConflict, recorder.Code)

		resp := decodeResponse(t, recorder)
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, entitlement.ReasonDeviceLimit, resp.Error.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/devices/claim", gin.H{
			"uid":       "user-1",
			"code":      "NIM-MISSING",
			"device_id": "device-a",
		})
		require.Equal(t, http.StatusNotFound, recorder.Code)

		resp := decodeResponse(t, recorder)
		require.NotNil(t, resp.Error)
		assert.Equal(t, entitlement.ReasonCodeNotFound, resp.Error.Code)
	})

	t.Run("missing fields rejected by binding", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/devices/claim", gin.H{
			"uid": "user-1",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestEntitlementHandler_ApplyToken(t *testing.T) {
	stack := newEntitlementTestStack(t)
	stack.seedToken(t, "TKN-HTTP-1", 2)

	t.Run("successful application", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/token/apply", gin.H{
			"uid":       "user-1",
			"token":     "TKN-HTTP-1",
			"device_id": "device-a",
		})
		require.Equal(t, http.StatusOK, recorder.Code)

		resp := decodeResponse(t, recorder)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "plus", data["plan"])
		assert.Equal(t, float64(30), data["duration_days"])
		assert.Equal(t, float64(1), data["remaining_slots"])
	})

	t.Run("unknown token", func(t *testing.T) {
		recorder := stack.postJSON(t, "/api/v1/entitlements/token/apply", gin.H{
			"uid":       "user-1",
			"token":     "TKN-MISSING",
			"device_id": "device-a",
		})
		require.Equal(t, http.StatusNotFound, recorder.Code)

		resp := decodeResponse(t, recorder)
		require.NotNil(t, resp.Error)
		assert.Equal(t, entitlement.ReasonTokenNotFound, resp.Error.Code)
	})
}

func TestEntitlementHandler_ReleaseDevice(t *testing.T) {
	stack := newEntitlementTestStack(t)
	stack.seedCode(t, "NIM-HTTP-2", 2)

	claim := stack.postJSON(t, "/api/v1/entitlements/devices/claim", gin.H{
		"uid":       "user-1",
		"code":      "NIM-HTTP-2",
		"device_id": "device-a",
	})
	require.Equal(t, http.StatusOK, claim.Code)

	recorder := stack.postJSON(t, "/api/v1/entitlements/devices/release", gin.H{
		"uid":       "user-1",
		"code":      "NIM-HTTP-2",
		"device_id": "device-a",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	resp := decodeResponse(t, recorder)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "user-1_device-a", data["device_doc_id"])
	assert.Equal(t, true, data["was_active_on_code"])
	assert.Equal(t, true, data["user_downgraded"])
}

func TestEntitlementHandler_GetCodeSummary(t *testing.T) {
	stack := newEntitlementTestStack(t)
	stack.seedCode(t, "NIM-HTTP-3", 2)

	t.Run("known code", func(t *testing.T) {
		recorder := stack.get(t, "/api/v1/entitlements/codes/NIM-HTTP-3/summary")
		require.Equal(t, http.StatusOK, recorder.Code)

		resp := decodeResponse(t, recorder)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "NIM-HTTP-3", data["code"])
		assert.Equal(t, float64(2), data["max_devices"])
		assert.Equal(t, float64(0), data["active_devices"])
	})

	t.Run("unknown code", func(t *testing.T) {
		recorder := stack.get(t, "/api/v1/entitlements/codes/NIM-MISSING/summary")
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
