package trip

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

// Category classifies a stop within a trip's itinerary.
type Category string

const (
	CategoryStart Category = "start"
	CategoryStop  Category = "stop"
	CategoryEnd   Category = "end"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryStart, CategoryStop, CategoryEnd:
		return true
	}
	return false
}

// Role classifies a participant's relationship to a trip.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleCompanion Role = "companion"
)

// Trip is a user-owned itinerary.
type Trip struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Participant links a user to a trip with a role.
type Participant struct {
	ID       string    `json:"id"`
	TripID   string    `json:"trip_id"`
	UserID   string    `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Stop is a single geographic waypoint in a trip's itinerary.
type Stop struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Category    Category  `json:"category"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateStop checks coordinate bounds and the category value.
func ValidateStop(s Stop) error {
	if s.Lat < -90 || s.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", s.Lat)
	}
	if s.Lng < -180 || s.Lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", s.Lng)
	}
	if !s.Category.Valid() {
		return fmt.Errorf("unknown stop category %q", s.Category)
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("stop title is required")
	}
	return nil
}

// CheckCategoryLimits ensures a trip keeps at most one start and one end stop.
func CheckCategoryLimits(existing []Stop, c Category) error {
	if c != CategoryStart && c != CategoryEnd {
		return nil
	}
	for _, s := range existing {
		if s.Category == c {
			return fmt.Errorf("trip already has a %s stop", c)
		}
	}
	return nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9-]`)
var slugSpaces = regexp.MustCompile(`\s+`)

const slugSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// UniqueSlug derives a URL slug from the title with a short random suffix so
// two trips with the same title never collide.
func UniqueSlug(title string) string {
	slug := strings.ToLower(title)
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugStrip.ReplaceAllString(slug, "")

	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = slugSuffixAlphabet[rand.Intn(len(slugSuffixAlphabet))]
	}

	return slug + "-" + string(suffix)
}
