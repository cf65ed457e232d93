package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidSeason is returned for a season outside spring, summer, fall, winter and all.
	ErrInvalidSeason = errors.New("invalid season")
	// ErrItemNotFound is returned when a clothing item does not exist.
	ErrItemNotFound = errors.New("clothing item not found")
)

// Season tags the time of year a clothing item is meant for.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
	SeasonAll    Season = "all"
)

// ParseSeason parses a season name case-insensitively. An empty value means SeasonAll.
func ParseSeason(value string) (Season, error) {
	switch season := Season(strings.ToLower(strings.TrimSpace(value))); season {
	case "":
		return SeasonAll, nil
	case SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter, SeasonAll:
		return season, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSeason, value)
	}
}

// ClothingItem is a photographed garment in a user's closet.
type ClothingItem struct {
	ID         string    `json:"item_id"`
	OwnerID    int64     `json:"-"`
	Name       string    `json:"item_name"`
	Type       string    `json:"type"`
	Color      string    `json:"color"`
	Season     Season    `json:"season"`
	Tags       string    `json:"tags"`
	PhotoID    PhotoID   `json:"-"`
	ImageURL   string    `json:"image_url"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}
