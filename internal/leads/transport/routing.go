package transport

import (
	"sort"
	"time"

	"crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type SetRoutingActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type AddLocationRequest struct {
	City string `json:"city" validate:"required,min=1,max=120"`
}

type AddRoutedUserRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
}

type RoutedLocationResponse struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

type RoutedUserResponse struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Count       int       `json:"count"`
	Active      bool      `json:"active"`
}

type RoutingConfigResponse struct {
	Active    bool                     `json:"active"`
	Locations []RoutedLocationResponse `json:"locations"`
	Users     []RoutedUserResponse     `json:"users"`
	UpdatedAt *time.Time               `json:"updatedAt,omitempty"`
}

// ToRoutingConfigResponse renders the config with locations sorted by key.
func ToRoutingConfigResponse(cfg domain.RoutingConfig) RoutingConfigResponse {
	resp := RoutingConfigResponse{
		Active:    cfg.Active,
		Locations: make([]RoutedLocationResponse, 0, len(cfg.Locations)),
		Users:     make([]RoutedUserResponse, 0, len(cfg.AssignedUsers)),
	}
	for key, loc := range cfg.Locations {
		resp.Locations = append(resp.Locations, RoutedLocationResponse{Key: key, DisplayName: loc.DisplayName, Active: loc.Active})
	}
	sort.Slice(resp.Locations, func(i, j int) bool { return resp.Locations[i].Key < resp.Locations[j].Key })
	for _, u := range cfg.AssignedUsers {
		resp.Users = append(resp.Users, ToRoutedUserResponse(u))
	}
	if !cfg.UpdatedAt.IsZero() {
		updated := cfg.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func ToRoutedUserResponse(u domain.RoutedUser) RoutedUserResponse {
	return RoutedUserResponse{UserID: u.UserID, DisplayName: u.DisplayName, Count: u.Count, Active: u.Active}
}
