package domain

import "time"

type User struct {
	UserID        string    `json:"id" dynamodbav:"user_id"`
	FullName      string    `json:"full_name" dynamodbav:"full_name"`
	PhoneNumber   string    `json:"phone_number" dynamodbav:"phone_number"`
	Email         string    `json:"email" dynamodbav:"email"` // always lowercase
	PasswordHash  string    `json:"-" dynamodbav:"password_hash"`
	EmailVerified bool      `json:"email_verified" dynamodbav:"email_verified"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
