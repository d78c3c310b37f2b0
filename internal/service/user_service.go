package service

import (
	"errors"

	"lms-consulting-portal/backend/internal/models"

	"gorm.io/gorm"
)

// Common user service errors
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidUserType    = errors.New("invalid user type")
)

// AuthResult is the identity contract the chat relay consumes: who the user
// is, which collection they live in, and whether they hold admin access.
type AuthResult struct {
	UserID      uint   `json:"userId"`
	UserType    string `json:"userType"` // "employee" or "consultant"
	DisplayName string `json:"name"`
	IsAdmin     bool   `json:"isAdmin"`
}

// UserService owns the two identity collections
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// RegisterEmployee creates a new employee account
func (s *UserService) RegisterEmployee(req *models.EmployeeSignupRequest) (*models.Employee, error) {
	var count int64
	s.db.Model(&models.Employee{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	employee := &models.Employee{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	if err := s.db.Create(employee).Error; err != nil {
		return nil, err
	}
	return employee, nil
}

// RegisterConsultant creates a new consultant account
func (s *UserService) RegisterConsultant(req *models.ConsultantSignupRequest) (*models.Consultant, error) {
	var count int64
	s.db.Model(&models.Consultant{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	consultant := &models.Consultant{
		Email:            req.Email,
		Phone:            req.Phone,
		OrganizationName: req.OrganizationName,
		OrganizationType: req.OrganizationType,
		Password:         req.Password,
	}
	if err := s.db.Create(consultant).Error; err != nil {
		return nil, err
	}
	return consultant, nil
}

// Login authenticates against the collection named by req.UserType and
// returns the identity contract for token issuance.
func (s *UserService) Login(req *models.LoginRequest) (*AuthResult, error) {
	switch req.UserType {
	case "employee":
		var employee models.Employee
		err := s.db.First(&employee, "email = ?", req.Email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		if !models.CheckPasswordHash(req.Password, employee.Password) {
			return nil, ErrInvalidCredentials
		}
		return &AuthResult{
			UserID:      employee.ID,
			UserType:    "employee",
			DisplayName: employee.DisplayName(),
			IsAdmin:     employee.IsAdmin,
		}, nil

	case "consultant":
		var consultant models.Consultant
		err := s.db.First(&consultant, "email = ?", req.Email).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, err
		}
		if !models.CheckPasswordHash(req.Password, consultant.Password) {
			return nil, ErrInvalidCredentials
		}
		return &AuthResult{
			UserID:      consultant.ID,
			UserType:    "consultant",
			DisplayName: consultant.DisplayName(),
			IsAdmin:     false,
		}, nil

	default:
		return nil, ErrInvalidUserType
	}
}

// Lookup resolves a user id and type to the identity contract, used by the
// /me endpoint.
func (s *UserService) Lookup(userID uint, userType string) (*AuthResult, error) {
	switch userType {
	case "employee":
		var employee models.Employee
		err := s.db.First(&employee, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		return &AuthResult{
			UserID:      employee.ID,
			UserType:    "employee",
			DisplayName: employee.DisplayName(),
			IsAdmin:     employee.IsAdmin,
		}, nil

	case "consultant":
		var consultant models.Consultant
		err := s.db.First(&consultant, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		return &AuthResult{
			UserID:      consultant.ID,
			UserType:    "consultant",
			DisplayName: consultant.DisplayName(),
			IsAdmin:     false,
		}, nil

	default:
		return nil, ErrInvalidUserType
	}
}
