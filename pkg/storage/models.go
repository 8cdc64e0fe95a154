package storage

import (
	"time"
)

// ShortLink maps a code to its destination. Codes are never rewritten once stored.
type ShortLink struct {
	Code        string `json:"code"`
	Destination string `json:"url"`
}

// ViewRecord is the per-code redirect counter. LinkID is a weak reference to
// ShortLink.Code: a record may outlive the link it counts.
type ViewRecord struct {
	LinkID    string    `json:"linkid" db:"linkid"`
	Count     int64     `json:"count" db:"count"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
