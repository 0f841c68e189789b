package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocktrail/internal/core/id"
)

func TestPaginationDefaults(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
		wantOffset   int
	}{
		{"zero values", 0, 0, 1, 20, 0},
		{"negative", -1, -5, 1, 20, 0},
		{"capped page size", 2, 500, 2, 20, 20},
		{"normal", 3, 10, 3, 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationRequest{Page: tt.page, PageSize: tt.size}
			p.Defaults()
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestParseID(t *testing.T) {
	want := id.New()

	got, err := ParseID("productId", want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseID("productId", "not-a-uuid")
	assert.Error(t, err)
}

func TestParseOptionalID(t *testing.T) {
	got, err := ParseOptionalID("locationId", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	empty := ""
	got, err = ParseOptionalID("locationId", &empty)
	require.NoError(t, err)
	assert.Nil(t, got)

	val := id.New().String()
	got, err = ParseOptionalID("locationId", &val)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, val, got.String())

	bad := "xyz"
	_, err = ParseOptionalID("locationId", &bad)
	assert.Error(t, err)
}

func TestParseOptionalTime(t *testing.T) {
	got, err := ParseOptionalTime("dateFrom", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = ParseOptionalTime("dateFrom", "2026-08-01T10:00:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())

	_, err = ParseOptionalTime("dateFrom", "01/08/2026")
	assert.Error(t, err)
}
