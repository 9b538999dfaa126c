package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pipeflow/deal-todo-api/internal/database"
	"github.com/pipeflow/deal-todo-api/internal/handlers"
	"github.com/pipeflow/deal-todo-api/internal/middleware"
	"github.com/pipeflow/deal-todo-api/internal/models"
	"github.com/pipeflow/deal-todo-api/internal/services"
)

const (
	panelSecret    = "surface-test-secret"
	panelUserID    = int64(4242)
	panelCompanyID = int64(9001)
	panelDealID    = "15"
)

type TodoHandlerSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	org    models.Organization
}

func TestTodoHandlerSuite(t *testing.T) {
	suite.Run(t, new(TodoHandlerSuite))
}

func (s *TodoHandlerSuite) SetupTest() {
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
	tenants := services.NewTenantService(sessions)
	todoService := services.NewTodoService(sessions, tenants)

	jwtMiddleware := middleware.NewJWTMiddleware(services.NewJWTService(panelSecret))
	todoHandler := handlers.NewTodoHandler(todoService)

	s.router = gin.New()
	group := s.router.Group("/todo/:userId/:companyId/:dealId")
	group.Use(jwtMiddleware.SurfaceAuthRequired(), middleware.TenantContext())
	{
		group.GET("", todoHandler.List)
		group.GET("/:recordId", todoHandler.Get)
		group.POST("", todoHandler.Create)
		group.PUT("", todoHandler.Update)
		group.DELETE("/:recordId", todoHandler.Delete)
	}

	s.org = models.Organization{
		CompanyID:     panelCompanyID,
		CompanyName:   "Test Company",
		CompanyDomain: "testcompany",
		APIDomain:     "https://testcompany.example-crm.com",
	}
	s.Require().NoError(db.Create(&s.org).Error)

	user := models.User{
		PlatformUserID: panelUserID,
		Email:          "test@example.com",
		Name:           "Test User",
		ActiveFlag:     true,
	}
	s.Require().NoError(db.Create(&user).Error)
	s.Require().NoError(db.Create(&models.Membership{
		UserID:         user.ID,
		OrganizationID: s.org.ID,
		Role:           models.RoleMember,
	}).Error)
}

func (s *TodoHandlerSuite) token() string {
	claims := services.SurfaceClaims{
		UserID:    panelUserID,
		CompanyID: panelCompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(panelSecret))
	s.Require().NoError(err)
	return signed
}

func (s *TodoHandlerSuite) request(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	s.router.ServeHTTP(w, req)
	return w
}

func (s *TodoHandlerSuite) panelPath(suffix string) string {
	return fmt.Sprintf("/todo/%d/%d/%s%s?token=%s", panelUserID, panelCompanyID, panelDealID, suffix, s.token())
}

func (s *TodoHandlerSuite) TestCreateAndListKeyedByID() {
	w := s.request(http.MethodPost, s.panelPath(""), `{"title": "call the prospect"}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var created struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))
	s.NotEmpty(created.ID)

	w = s.request(http.MethodGet, s.panelPath(""), "")
	s.Require().Equal(http.StatusOK, w.Code)

	var listing map[string]models.TodoView
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &listing))
	s.Require().Len(listing, 1)

	view, ok := listing[created.ID]
	s.Require().True(ok, "listing is keyed by record id")
	s.Equal("call the prospect", view.Title)
	s.False(view.Checked)
}

func (s *TodoHandlerSuite) TestListUnknownCompanyRendersEmptyObject() {
	// Token without a company claim so the path mismatch is not rejected first.
	claims := services.SurfaceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(panelSecret))
	s.Require().NoError(err)

	w := s.request(http.MethodGet, fmt.Sprintf("/todo/%d/555/%s?token=%s", panelUserID, panelDealID, signed), "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{}`, w.Body.String())
}

func (s *TodoHandlerSuite) TestCreateRejectsEmptyTitle() {
	w := s.request(http.MethodPost, s.panelPath(""), `{"title": "   "}`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TodoHandlerSuite) TestUpdateAndDelete() {
	w := s.request(http.MethodPost, s.panelPath(""), `{"title": "draft"}`)
	s.Require().Equal(http.StatusOK, w.Code)

	var created struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &created))

	w = s.request(http.MethodPut, s.panelPath(""), fmt.Sprintf(`{"id": %q, "title": "final", "checked": true}`, created.ID))
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, s.panelPath("/"+created.ID), "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "final")

	var count int64
	s.Require().NoError(s.db.Model(&models.Todo{}).Count(&count).Error)
	s.Equal(int64(0), count)
}

func (s *TodoHandlerSuite) TestRequiresSurfaceToken() {
	w := s.request(http.MethodGet, fmt.Sprintf("/todo/%d/%d/%s", panelUserID, panelCompanyID, panelDealID), "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *TodoHandlerSuite) TestGetMalformedRecordID() {
	w := s.request(http.MethodGet, s.panelPath("/not-a-uuid"), "")
	s.Equal(http.StatusBadRequest, w.Code)
}
