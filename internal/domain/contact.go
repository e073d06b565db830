package domain

import "time"

type Contact struct {
	ContactID   string    `json:"id" dynamodbav:"contact_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Name        string    `json:"name" dynamodbav:"name"`
	PhoneNumber string    `json:"phone_number" dynamodbav:"phone_number"`
	Email       string    `json:"email,omitempty" dynamodbav:"email"` // stored lowercase
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateContactRequest struct {
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Email       string `json:"email" validate:"omitempty,email"`
}

type UpdateContactRequest struct {
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email" validate:"omitempty,email"`
}
