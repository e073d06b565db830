package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contactbook-api/internal/domain"
	"github.com/contactbook-api/internal/pkg/id"
)

// Service is the contact-book use cases scoped to an authenticated owner.
// Every mutating operation checks ownership before touching the record.
type Service interface {
	Add(ctx context.Context, ownerID string, req domain.CreateContactRequest) (*domain.Contact, error)
	List(ctx context.Context, ownerID string) ([]domain.Contact, error)
	Update(ctx context.Context, ownerID, contactID string, req domain.UpdateContactRequest) (*domain.Contact, error)
	Delete(ctx context.Context, ownerID, contactID string) error
}

type contactStore interface {
	Put(ctx context.Context, c *domain.Contact) error
	Get(ctx context.Context, contactID string) (*domain.Contact, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Contact, error)
	Update(ctx context.Context, contactID string, updates map[string]interface{}) error
	Delete(ctx context.Context, contactID string) error
}

type service struct {
	contacts contactStore
}

func NewService(contacts contactStore) Service {
	return &service{contacts: contacts}
}

func (s *service) Add(ctx context.Context, ownerID string, req domain.CreateContactRequest) (*domain.Contact, error) {
	now := time.Now().UTC()
	c := &domain.Contact{
		ContactID:   id.New(),
		UserID:      ownerID,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contacts.Put(ctx, c); err != nil {
		return nil, fmt.Errorf("store contact: %w", err)
	}
	return c, nil
}

func (s *service) List(ctx context.Context, ownerID string) ([]domain.Contact, error) {
	return s.contacts.ListByUser(ctx, ownerID)
}

// owned loads the contact and enforces that ownerID owns it. Foreign contacts
// return ErrForbidden rather than ErrNotFound so misrouted clients see a
// clear authorization failure.
func (s *service) owned(ctx context.Context, ownerID, contactID string) (*domain.Contact, error) {
	c, err := s.contacts.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if c.UserID != ownerID {
		return nil, fmt.Errorf("contact belongs to another user: %w", domain.ErrForbidden)
	}
	return c, nil
}

func (s *service) Update(ctx context.Context, ownerID, contactID string, req domain.UpdateContactRequest) (*domain.Contact, error) {
	c, err := s.owned(ctx, ownerID, contactID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
		c.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		updates["phone_number"] = *req.PhoneNumber
		c.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		updates["email"] = email
		c.Email = email
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}
	if err := s.contacts.Update(ctx, contactID, updates); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

func (s *service) Delete(ctx context.Context, ownerID, contactID string) error {
	if _, err := s.owned(ctx, ownerID, contactID); err != nil {
		return err
	}
	return s.contacts.Delete(ctx, contactID)
}
