package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

func TestReviewPolicy_Excluded(t *testing.T) {
	policy := model.ReviewPolicy{
		Exclude: []string{"*.lock", "vendor/*", "go.sum"},
	}

	tests := []struct {
		filename string
		want     bool
	}{
		{"Cargo.lock", true},
		{"deps/Cargo.lock", true}, // base name match
		{"vendor/lib.go", true},
		{"go.sum", true},
		{"main.go", false},
		{"pkg/server.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			gt.V(t, policy.Excluded(tt.filename)).Equal(tt.want)
		})
	}
}

func TestReviewPolicy_Zero(t *testing.T) {
	var policy model.ReviewPolicy
	gt.V(t, policy.Excluded("anything.go")).Equal(false)
}
