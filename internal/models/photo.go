package models

import "time"

type Photo struct {
	ID             string
	UserID         string
	ImageURL       string
	Description    string
	AltDescription string
	ColorPalette   []string
	SuggestedTags  []string
	DateSaved      time.Time
}

type Tag struct {
	ID      string
	PhotoID string
	Name    string
	Type    string
}

type SearchHistory struct {
	ID        string
	UserID    string
	Query     string
	Type      string
	Timestamp time.Time
}
