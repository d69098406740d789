package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func TestTsToTime(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want time.Time
	}{
		{"whole seconds", 1717243200, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"microsecond fraction", 1717243200.5, time.Date(2024, 6, 1, 12, 0, 0, 500000000, time.UTC)},
		{"epoch", 0, time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tsToTime(tt.in); !got.Equal(tt.want) {
				t.Errorf("tsToTime(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"pgx sqlstate", errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"), true},
		{"plain duplicate message", errors.New("duplicate key value"), true},
		{"other error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err); got != tt.want {
				t.Errorf("isUniqueViolation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
