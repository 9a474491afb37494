package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsKeyConflictErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrKeyConflict, true},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23514"}, false},
		{"sqlite", fmt.Errorf("UNIQUE constraint failed: events.source_id"), true},
		{"unrelated", fmt.Errorf("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsKeyConflictErr(tt.err))
		})
	}
}

func TestIsRecordNotFoundErr(t *testing.T) {
	assert.True(t, IsRecordNotFoundErr(gorm.ErrRecordNotFound))
	assert.True(t, IsRecordNotFoundErr(fmt.Errorf("find: %w", ErrNotFound)))
	assert.False(t, IsRecordNotFoundErr(ErrKeyConflict))
}
