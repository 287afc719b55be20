package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/services/users"
)

type UserHTTPHandler struct {
	users *users.Service
}

func NewUserHTTPHandler(userSvc *users.Service) *UserHTTPHandler {
	return &UserHTTPHandler{users: userSvc}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

type UpdateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password,omitempty"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role,omitempty"`
}

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	token, exp, user, err := h.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", gin.H{
		"token":      token,
		"expires_at": exp,
		"user":       user,
	}))
}

// Logout is a stateless acknowledgement: tokens expire on their own.
func (h *UserHTTPHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse("Logout successful", nil))
}

func (h *UserHTTPHandler) Validate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.JSON(http.StatusUnauthorized, errorResponse("Missing bearer token"))
		return
	}

	claims, err := h.users.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid or expired token"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Token is valid", gin.H{
		"user_id":  claims.UserId,
		"username": claims.Username,
		"role":     claims.Role,
	}))
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	var (
		list []models.User
		err  error
	)
	switch {
	case c.Query("role") != "":
		list, err = h.users.FindByRole(c.Request.Context(), c.Query("role"))
	case c.Query("active") == "true":
		list, err = h.users.FindActive(c.Request.Context())
	default:
		list, err = h.users.FindAll(c.Request.Context())
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Users retrieved", list))
}

func (h *UserHTTPHandler) GetUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user ID"))
		return
	}

	user, err := h.users.Resolve(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User retrieved", user))
}

func (h *UserHTTPHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	}
	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("User created", user))
}

func (h *UserHTTPHandler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user ID"))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User updated", user))
}

func (h *UserHTTPHandler) ActivateUser(c *gin.Context)   { h.setActive(c, true) }
func (h *UserHTTPHandler) DeactivateUser(c *gin.Context) { h.setActive(c, false) }

func (h *UserHTTPHandler) setActive(c *gin.Context, active bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user ID"))
		return
	}
	if err := h.users.SetActive(c.Request.Context(), id, active); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User updated", nil))
}

func (h *UserHTTPHandler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user ID"))
		return
	}
	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User deleted", nil))
}
