package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pipeflow/deal-todo-api/internal/config"
	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/handlers"
	"github.com/pipeflow/deal-todo-api/internal/mocks"
	"github.com/pipeflow/deal-todo-api/internal/models"
	"github.com/pipeflow/deal-todo-api/internal/services"
)

type OAuthHandlerSuite struct {
	suite.Suite
	db     *gorm.DB
	crm    *mocks.MockCRMClient
	router *gin.Engine
}

func TestOAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(OAuthHandlerSuite))
}

func (s *OAuthHandlerSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.Exec("PRAGMA foreign_keys = ON").Error)
	s.Require().NoError(database.Migrate(db))
	s.db = db

	sessions := database.NewSessionManager(database.NewGormAdapter(db))
	s.crm = mocks.NewMockCRMClient()
	encryption := services.NewEncryptionService("test-encryption-key")
	installations := services.NewInstallationService(sessions, s.crm, encryption)

	oauthCfg := config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
	handler := handlers.NewOAuthHandler(installations, s.crm, oauthCfg)

	s.router = gin.New()
	s.router.GET("/callback", handler.Callback)
	s.router.DELETE("/callback", handler.Uninstall)
}

func (s *OAuthHandlerSuite) TestCallbackInstallsAndEchoesGrant() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code", nil)
	s.router.ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code)

	var view services.InstallationView
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &view))
	s.Equal(s.crm.MockGrant.AccessToken, view.AccessToken)
	s.Equal(s.crm.MockProfile.UserID, view.UserID)
	s.Equal(s.crm.MockProfile.CompanyID, view.CompanyID)

	s.Require().Len(s.crm.ExchangeCodeCalls, 1)
	s.Equal("auth-code", s.crm.ExchangeCodeCalls[0].Code)

	var count int64
	s.Require().NoError(s.db.Model(&models.Credential{}).Count(&count).Error)
	s.Equal(int64(1), count)
}

func (s *OAuthHandlerSuite) TestCallbackRequiresCode() {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.crm.ExchangeCodeCalls)
}

func (s *OAuthHandlerSuite) TestCallbackProviderFailure() {
	s.crm.ShouldError = true

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code", nil)
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusInternalServerError, w.Code)
}

func (s *OAuthHandlerSuite) uninstallRequest(user, pass, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	s.router.ServeHTTP(w, req)
	return w
}

func (s *OAuthHandlerSuite) TestUninstallRequiresWebhookCredentials() {
	w := s.uninstallRequest("", "", `{"user_id": 4242, "company_id": 9001}`)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.uninstallRequest("client-id", "wrong-secret", `{"user_id": 4242, "company_id": 9001}`)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *OAuthHandlerSuite) TestUninstallRemovesInstallation() {
	// Install first.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?code=auth-code", nil)
	s.router.ServeHTTP(w, req)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.uninstallRequest("client-id", "client-secret", `{"user_id": 4242, "company_id": 9001}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var count int64
	s.Require().NoError(s.db.Model(&models.Organization{}).Count(&count).Error)
	s.Equal(int64(0), count)
}

func (s *OAuthHandlerSuite) TestUninstallRejectsMalformedPayload() {
	w := s.uninstallRequest("client-id", "client-secret", `{"user_id": "not-a-number"}`)
	s.Equal(http.StatusBadRequest, w.Code)
}
