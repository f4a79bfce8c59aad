// Package types provides type definitions for the entities the sync core
// caches and mutates.
package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Identity is the opaque handle identifying the current authenticated user.
// The zero value means no session.
type Identity uuid.UUID

// NoIdentity is the absent identity.
var NoIdentity Identity

// IsZero reports whether the identity is absent.
func (id Identity) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id Identity) String() string {
	return uuid.UUID(id).String()
}

// MarshalText encodes the identity as its canonical UUID string.
func (id Identity) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText decodes the identity from its canonical UUID string.
func (id *Identity) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = Identity(u)
	return nil
}

// ParseIdentity parses an identity from its string form.
func ParseIdentity(s string) (Identity, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NoIdentity, err
	}
	return Identity(u), nil
}

// Kind identifies a category of cached entity. Each kind has its own cache
// slot and its own change-feed subscription.
type Kind string

const (
	KindProfile      Kind = "profile"
	KindResume       Kind = "resume"
	KindApplication  Kind = "application"
	KindWishlistItem Kind = "wishlist_item"
)

// Kinds lists every entity kind the store manages, in cold-load order.
func Kinds() []Kind {
	return []Kind{KindProfile, KindResume, KindApplication, KindWishlistItem}
}

// Valid reports whether k names a known entity kind.
func (k Kind) Valid() bool {
	switch k {
	case KindProfile, KindResume, KindApplication, KindWishlistItem:
		return true
	}
	return false
}

// WorkLocation enumerates the profile location preference.
type WorkLocation string

const (
	LocationRemote   WorkLocation = "Remote"
	LocationHybrid   WorkLocation = "Hybrid"
	LocationOnSite   WorkLocation = "On-site"
	LocationFlexible WorkLocation = "Flexible"
)

// Valid reports whether l is a known location preference.
func (l WorkLocation) Valid() bool {
	switch l {
	case LocationRemote, LocationHybrid, LocationOnSite, LocationFlexible:
		return true
	}
	return false
}

// ApplicationStatus enumerates the application lifecycle states.
type ApplicationStatus string

const (
	StatusDraft      ApplicationStatus = "draft"
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusInProgress ApplicationStatus = "in_progress"
)

// Row is the common surface of every cached entity: a stable identifier,
// its kind, and the timestamp used as its revision signal.
type Row interface {
	EntityKind() Kind
	EntityID() uuid.UUID
	ModifiedAt() time.Time
}

// Profile is the one-per-identity user profile record.
type Profile struct {
	ID           Identity        `json:"id" validate:"required"`
	FullName     string          `json:"full_name" validate:"required,min=1"`
	DesiredTitle string          `json:"desired_title" validate:"required,min=1"`
	Location     WorkLocation    `json:"location" validate:"required,oneof=Remote Hybrid On-site Flexible"`
	SalaryMin    int64           `json:"salary_min" validate:"gte=0"`
	SalaryMax    int64           `json:"salary_max" validate:"gtefield=SalaryMin"`
	Skills       string          `json:"skills"`
	ParsedCV     json.RawMessage `json:"parsed_cv,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// EntityKind implements Row.
func (p Profile) EntityKind() Kind { return KindProfile }

// EntityID implements Row. A profile is keyed by its owner identity.
func (p Profile) EntityID() uuid.UUID { return uuid.UUID(p.ID) }

// ModifiedAt implements Row.
func (p Profile) ModifiedAt() time.Time { return p.UpdatedAt }

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// Resume is an uploaded resume record. Multiple historical rows may exist per
// identity; the most recently created one is the current resume.
type Resume struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	UserID    Identity  `json:"user_id" validate:"required"`
	FileURL   string    `json:"file_url" validate:"required,url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityKind implements Row.
func (r Resume) EntityKind() Kind { return KindResume }

// EntityID implements Row.
func (r Resume) EntityID() uuid.UUID { return r.ID }

// ModifiedAt implements Row.
func (r Resume) ModifiedAt() time.Time {
	if r.UpdatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}

// Validate validates the Resume using the validator.
func (r *Resume) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Application is a job application record. Created by the submission flow;
// the sync core only reads and aggregates it.
type Application struct {
	ID             uuid.UUID         `json:"id"`
	UserID         Identity          `json:"user_id"`
	JobTitle       string            `json:"job_title"`
	Company        string            `json:"company"`
	Status         ApplicationStatus `json:"status"`
	CoverLetterURL string            `json:"cover_letter_url,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// EntityKind implements Row.
func (a Application) EntityKind() Kind { return KindApplication }

// EntityID implements Row.
func (a Application) EntityID() uuid.UUID { return a.ID }

// ModifiedAt implements Row. Applications are immutable from this core's
// perspective, so creation time is the revision signal.
func (a Application) ModifiedAt() time.Time { return a.CreatedAt }

// WishlistItem is a saved job reference. Read-only here.
type WishlistItem struct {
	ID        uuid.UUID `json:"id"`
	UserID    Identity  `json:"user_id"`
	JobTitle  string    `json:"job_title"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

// EntityKind implements Row.
func (w WishlistItem) EntityKind() Kind { return KindWishlistItem }

// EntityID implements Row.
func (w WishlistItem) EntityID() uuid.UUID { return w.ID }

// ModifiedAt implements Row.
func (w WishlistItem) ModifiedAt() time.Time { return w.CreatedAt }
