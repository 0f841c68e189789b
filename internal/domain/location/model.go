// Package location provides the Location catalog and area resolution.
// Locations are physical places or storage slots grouped into areas; a
// per-area "General" row acts as the default destination when a caller
// names only an area.
package location

import (
	"context"
	"strings"
	"time"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
)

// GeneralName is the reserved name of the per-area fallback location.
const GeneralName = "General"

// Location represents a physical place or storage slot.
type Location struct {
	ID id.ID `db:"id" json:"id"`

	// Area is the coarse grouping label (warehouse or site name)
	Area string `db:"area" json:"area"`

	// Name is unique within an area (enforced by a DB constraint, since
	// area resolution can race across processes)
	Name string `db:"name" json:"name"`

	// Code is the globally unique short identifier
	Code string `db:"code" json:"code"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewLocation creates an active location with a generated ID.
func NewLocation(area, name, code string) *Location {
	return &Location{
		ID:        id.New(),
		Area:      area,
		Name:      name,
		Code:      code,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate implements basic invariants.
func (l *Location) Validate(ctx context.Context) error {
	if strings.TrimSpace(l.Area) == "" {
		return apperror.NewValidation("area is required").WithDetail("field", "area")
	}
	if strings.TrimSpace(l.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if strings.TrimSpace(l.Code) == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	return nil
}

// IsGeneral reports whether this is an area's fallback location.
func (l *Location) IsGeneral() bool {
	return l.Name == GeneralName
}

// DeriveGeneralCode builds the deterministic code for an area's General
// location: upper-cased, non-alphanumerics stripped, "-GENERAL" suffix.
func DeriveGeneralCode(area string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(strings.TrimSpace(area)) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		b.WriteString("AREA")
	}
	return b.String() + "-GENERAL"
}
