// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
)

// --- Pagination ---

// PaginationRequest contains pagination parameters.
type PaginationRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// Defaults sets default pagination values.
func (p *PaginationRequest) Defaults() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

// Offset calculates SQL offset.
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Page  int `json:"page"`
	Count int `json:"count"`
}

// --- Helpers ---

// ParseID parses a required id path or body value.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid identifier").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseOptionalID parses an optional id value; nil and empty pass through.
func ParseOptionalID(field string, value *string) (*id.ID, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := ParseID(field, *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func idString(v *id.ID) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

// ParseOptionalTime parses an optional RFC3339 query value.
func ParseOptionalTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperror.NewValidation("invalid timestamp, expected RFC3339").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return &t, nil
}
