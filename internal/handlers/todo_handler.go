package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pipeflow/deal-todo-api/internal/middleware"
	"github.com/pipeflow/deal-todo-api/internal/models"
	"github.com/pipeflow/deal-todo-api/internal/services"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// TodoHandler serves the deal panel's todo list. Response shapes follow what
// the panel template consumes: listings are objects keyed by record id.
type TodoHandler struct {
	todos *services.TodoService
}

func NewTodoHandler(todos *services.TodoService) *TodoHandler {
	return &TodoHandler{todos: todos}
}

// List returns the deal's todos as an object keyed by id, in display order
// insertion sequence. An unknown company renders an empty object.
func (h *TodoHandler) List(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)
	dealID := c.Param("dealId")

	todos, err := h.todos.List(c.Request.Context(), userID, companyID, dealID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	views := make(map[string]models.TodoView, len(todos))
	for _, todo := range todos {
		views[todo.ID.String()] = todo.View()
	}

	utils.JSONResponse(c, http.StatusOK, views)
}

// Get returns a single todo row, or an empty object when no row matches the
// id within the caller's organization and deal.
func (h *TodoHandler) Get(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)
	dealID := c.Param("dealId")

	recordID, err := uuid.Parse(c.Param("recordId"))
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid record identifier", err)
		return
	}

	todo, err := h.todos.Get(c.Request.Context(), userID, companyID, dealID, recordID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if todo == nil {
		utils.JSONResponse(c, http.StatusOK, gin.H{})
		return
	}

	utils.JSONResponse(c, http.StatusOK, todo)
}

// Create appends a todo to the deal's list and returns the new record id.
func (h *TodoHandler) Create(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)
	dealID := c.Param("dealId")

	var input services.CreateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid todo payload", err)
		return
	}
	if err := utils.ValidateTodoTitle(input.Title); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid todo title", err)
		return
	}

	id, err := h.todos.Create(c.Request.Context(), userID, companyID, dealID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"id": id})
}

// Update writes title and checked for the identified todo. A non-matching id
// affects nothing and still succeeds.
func (h *TodoHandler) Update(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)
	dealID := c.Param("dealId")

	var input services.UpdateTodoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid todo payload", err)
		return
	}
	if err := utils.ValidateTodoTitle(input.Title); err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid todo title", err)
		return
	}

	if err := h.todos.Update(c.Request.Context(), userID, companyID, dealID, input); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.SendSuccessResponse(c, nil)
}

// Delete hard-deletes the identified todo and returns its prior state, or an
// empty object when nothing matched.
func (h *TodoHandler) Delete(c *gin.Context) {
	userID, companyID := middleware.TenantIDs(c)
	dealID := c.Param("dealId")

	recordID, err := uuid.Parse(c.Param("recordId"))
	if err != nil {
		utils.SendErrorResponse(c, http.StatusBadRequest, "Invalid record identifier", err)
		return
	}

	removed, err := h.todos.Delete(c.Request.Context(), userID, companyID, dealID, recordID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if removed == nil {
		utils.JSONResponse(c, http.StatusOK, gin.H{})
		return
	}

	utils.JSONResponse(c, http.StatusOK, removed)
}
