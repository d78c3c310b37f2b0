package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Employee is an internal staff account. Employees can carry the admin flag,
// which admits their connections to the admin fan-out room.
type Employee struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Password  string    `json:"-"` // Never return password in JSON
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Consultant is an external client account, identified by organization
// rather than personal name.
type Consultant struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Email            string    `gorm:"uniqueIndex" json:"email"`
	Phone            string    `json:"phone,omitempty"`
	OrganizationName string    `json:"organizationName"`
	OrganizationType string    `json:"organizationType,omitempty"`
	Password         string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EmployeeSignupRequest is the request structure for registering an employee
type EmployeeSignupRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" binding:"required,min=8"`
}

// ConsultantSignupRequest is the request structure for registering a consultant
type ConsultantSignupRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone,omitempty"`
	OrganizationName string `json:"organizationName" binding:"required"`
	OrganizationType string `json:"organizationType,omitempty"`
	Password         string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the request structure for login. UserType selects which
// identity collection the email is looked up in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	UserType string `json:"userType" binding:"required,oneof=employee consultant"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BeforeCreate hashes the password before saving
func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	hashed, err := HashPassword(e.Password)
	if err != nil {
		return err
	}
	e.Password = hashed
	return nil
}

// BeforeCreate hashes the password before saving
func (c *Consultant) BeforeCreate(tx *gorm.DB) error {
	hashed, err := HashPassword(c.Password)
	if err != nil {
		return err
	}
	c.Password = hashed
	return nil
}

// DisplayName returns the employee's display name
func (e *Employee) DisplayName() string { return e.FullName }

// DisplayName returns the consultant's display name
func (c *Consultant) DisplayName() string { return c.OrganizationName }
