package http

import (
	"github.com/contactbook-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/contactbook-api/internal/infrastructure/jwt"
	"github.com/contactbook-api/internal/infrastructure/smtp"
	"github.com/contactbook-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	OtpRepo     *dynamo.OtpRepo
	ContactRepo *dynamo.ContactRepo
	Mailer      smtp.Mailer
	SMSSender   sns.SMSSender
	JWTProvider *jwtinfra.Provider
}
