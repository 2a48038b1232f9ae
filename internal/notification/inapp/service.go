// Package inapp stores per-user notifications shown inside the CRM.
package inapp

import (
	"context"
	"strings"

	"crm_backend/platform/apperr"
	"crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryWarning = "warning"
	CategoryError   = "error"

	maxPageSize = 50
)

type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

type SendParams struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
	Category     string
}

// Send validates and persists a notification for one user.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	if p.TenantID == uuid.Nil || p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation("tenantId and userId are required")
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.Title == "" || p.Content == "" {
		return Notification{}, apperr.Validation("title and content are required")
	}

	category := p.Category
	switch category {
	case "":
		category = CategoryInfo
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError:
	default:
		return Notification{}, apperr.Validation("unknown notification category")
	}

	var resourceType *string
	if p.ResourceType != "" {
		resourceType = &p.ResourceType
	}

	n, err := s.store.Insert(ctx, Notification{
		TenantID:     p.TenantID,
		UserID:       p.UserID,
		Title:        p.Title,
		Content:      p.Content,
		ResourceID:   p.ResourceID,
		ResourceType: resourceType,
		Category:     category,
	})
	if err != nil {
		s.log.Error("failed to persist in-app notification", "error", err, "userId", p.UserID)
		return Notification{}, err
	}
	return n, nil
}

// List returns a page of the inbox, newest first. Page starts at 1.
func (s *Service) List(ctx context.Context, inbox Inbox, page, limit int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = maxPageSize
	}
	return s.store.Page(ctx, inbox, limit, (page-1)*limit)
}

func (s *Service) CountUnread(ctx context.Context, inbox Inbox) (int, error) {
	return s.store.Unread(ctx, inbox)
}

func (s *Service) MarkRead(ctx context.Context, inbox Inbox, id uuid.UUID) error {
	marked, err := s.store.MarkRead(ctx, inbox, id)
	if err != nil {
		return err
	}
	if marked == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, inbox Inbox) error {
	_, err := s.store.MarkRead(ctx, inbox)
	return err
}

func (s *Service) Delete(ctx context.Context, inbox Inbox, id uuid.UUID) error {
	removed, err := s.store.Remove(ctx, inbox, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("notification not found")
	}
	return nil
}
