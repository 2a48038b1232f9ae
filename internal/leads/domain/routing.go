package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var cityFolder = cases.Lower(language.Und)

// CityKey folds a free-text city to the key used by routing configs and region
// files: trimmed, inner whitespace collapsed and lower-cased.
func CityKey(city string) string {
	return cityFolder.String(strings.Join(strings.Fields(city), " "))
}

// RoutedLocation is one city served by location routing.
type RoutedLocation struct {
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

// RoutedUser is one agent in the location routing pool. Count only grows.
type RoutedUser struct {
	UserID      uuid.UUID `json:"userId"`
	DisplayName string    `json:"displayName"`
	Count       int       `json:"count"`
	Active      bool      `json:"active"`
}

// RoutingConfig is the per-tenant location routing document. AssignedUsers is
// ordered; ties on Count go to the earliest entry.
type RoutingConfig struct {
	TenantID      uuid.UUID
	Active        bool
	Locations     map[string]RoutedLocation
	AssignedUsers []RoutedUser
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRoutingConfig returns the empty, active document created on demand.
func NewRoutingConfig(tenantID uuid.UUID) RoutingConfig {
	return RoutingConfig{
		TenantID:      tenantID,
		Active:        true,
		Locations:     map[string]RoutedLocation{},
		AssignedUsers: []RoutedUser{},
	}
}

// Serves reports whether the config is active and routes city.
func (c RoutingConfig) Serves(city string) bool {
	if !c.Active {
		return false
	}
	loc, ok := c.Locations[CityKey(city)]
	return ok && loc.Active
}

// NextUserIndex returns the index of the active user with the lowest count for
// which eligible returns true, or -1. A nil eligible accepts every user.
func (c RoutingConfig) NextUserIndex(eligible func(uuid.UUID) bool) int {
	best := -1
	for i, u := range c.AssignedUsers {
		if !u.Active {
			continue
		}
		if eligible != nil && !eligible(u.UserID) {
			continue
		}
		if best == -1 || u.Count < c.AssignedUsers[best].Count {
			best = i
		}
	}
	return best
}

// AddLocation adds or reactivates a city and returns its key.
func (c *RoutingConfig) AddLocation(city string) string {
	key := CityKey(city)
	if c.Locations == nil {
		c.Locations = map[string]RoutedLocation{}
	}
	c.Locations[key] = RoutedLocation{DisplayName: strings.TrimSpace(city), Active: true}
	return key
}

// RemoveLocation deletes a city and reports whether it was present.
func (c *RoutingConfig) RemoveLocation(city string) bool {
	key := CityKey(city)
	if _, ok := c.Locations[key]; !ok {
		return false
	}
	delete(c.Locations, key)
	return true
}

// AddUser appends a user or reactivates an existing entry. The count of an
// existing entry is kept.
func (c *RoutingConfig) AddUser(userID uuid.UUID, displayName string) {
	for i := range c.AssignedUsers {
		if c.AssignedUsers[i].UserID == userID {
			c.AssignedUsers[i].Active = true
			if displayName != "" {
				c.AssignedUsers[i].DisplayName = displayName
			}
			return
		}
	}
	c.AssignedUsers = append(c.AssignedUsers, RoutedUser{UserID: userID, DisplayName: displayName, Active: true})
}

// RemoveUser drops a user from the pool and reports whether it was present.
func (c *RoutingConfig) RemoveUser(userID uuid.UUID) bool {
	for i := range c.AssignedUsers {
		if c.AssignedUsers[i].UserID == userID {
			c.AssignedUsers = append(c.AssignedUsers[:i], c.AssignedUsers[i+1:]...)
			return true
		}
	}
	return false
}
