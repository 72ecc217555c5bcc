package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginationParamsOffset(t *testing.T) {
	assert.Equal(t, 0, PaginationParams{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 40, PaginationParams{Page: 3, Limit: 20}.Offset())
}

func TestPaginationParamsNormalize(t *testing.T) {
	assert.Equal(t, PaginationParams{Page: 1, Limit: 10}, PaginationParams{Page: 0, Limit: 500}.Normalize())
	assert.Equal(t, PaginationParams{Page: 1, Limit: 10}, PaginationParams{Page: -4, Limit: 0}.Normalize())
	assert.Equal(t, PaginationParams{Page: 2, Limit: 100}, PaginationParams{Page: 2, Limit: 100}.Normalize())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(PaginationParams{Page: 2, Limit: 20}, 41)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrevious)

	last := NewPagination(PaginationParams{Page: 3, Limit: 20}, 41)
	assert.False(t, last.HasNext)

	empty := NewPagination(PaginationParams{}, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrevious)
	assert.Equal(t, 10, empty.Limit)
}
