package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/internal/service"
	"lms-consulting-portal/backend/pkg/jwt"
	"lms-consulting-portal/backend/pkg/logger"
)

// AuthHandler handles signup, login and the current-user lookup
type AuthHandler struct {
	users      *service.UserService
	jwtService *jwt.Service
	logger     *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, jwtService *jwt.Service, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		jwtService: jwtService,
		logger:     logger,
	}
}

// SignupEmployee registers an employee account
func (h *AuthHandler) SignupEmployee(c *gin.Context) {
	var req models.EmployeeSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for employee signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	employee, err := h.users.RegisterEmployee(&req)
	if err != nil {
		switch err {
		case service.ErrUserAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		default:
			h.logger.Error("Error creating employee", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	token, err := h.jwtService.GenerateToken(employee.ID, "employee", employee.IsAdmin)
	if err != nil {
		h.logger.Error("Error generating token", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": service.AuthResult{
			UserID:      employee.ID,
			UserType:    "employee",
			DisplayName: employee.DisplayName(),
			IsAdmin:     employee.IsAdmin,
		},
		"token": token,
	})
}

// SignupConsultant registers a consultant account
func (h *AuthHandler) SignupConsultant(c *gin.Context) {
	var req models.ConsultantSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for consultant signup", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	consultant, err := h.users.RegisterConsultant(&req)
	if err != nil {
		switch err {
		case service.ErrUserAlreadyExists:
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		default:
			h.logger.Error("Error creating consultant", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		}
		return
	}

	token, err := h.jwtService.GenerateToken(consultant.ID, "consultant", false)
	if err != nil {
		h.logger.Error("Error generating token", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user": service.AuthResult{
			UserID:      consultant.ID,
			UserType:    "consultant",
			DisplayName: consultant.DisplayName(),
		},
		"token": token,
	})
}

// Login authenticates an employee or consultant and issues a token
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Error binding JSON for login", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.users.Login(&req)
	if err != nil {
		switch err {
		case service.ErrInvalidCredentials:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case service.ErrInvalidUserType:
			c.JSON(http.StatusBadRequest, gin.H{"error": "User type must be employee or consultant"})
		default:
			h.logger.Error("Error during login", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		}
		return
	}

	token, err := h.jwtService.GenerateToken(result.UserID, result.UserType, result.IsAdmin)
	if err != nil {
		h.logger.Error("Error generating token", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during login"})
		return
	}

	h.logger.Info("User logged in",
		"userID", result.UserID,
		"userType", result.UserType,
	)

	c.JSON(http.StatusOK, gin.H{
		"user":  result,
		"token": token,
	})
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	userType, _ := c.Get("userType")

	result, err := h.users.Lookup(userID.(uint), userType.(string))
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			h.logger.Error("Error looking up user", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve user"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
