package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

func TestLocationAdmin(t *testing.T) {
	ctx := context.Background()
	memory := db.NewMemoryDB()

	loc, err := AddLocation(ctx, memory, zap.NewNop(), "  North High ")
	require.NoError(t, err)
	assert.Equal(t, "North High", loc.Name)

	_, err = AddLocation(ctx, memory, zap.NewNop(), "North High")
	assert.ErrorIs(t, err, db.ErrDuplicate)

	require.NoError(t, AssignTechnician(ctx, memory, zap.NewNop(), loc.ID, "tech@district.org"))
	require.NoError(t, AssignTechnician(ctx, memory, zap.NewNop(), loc.ID, "tech@district.org"))

	got, err := memory.GetLocationByName(ctx, "North High")
	require.NoError(t, err)
	assert.Equal(t, []string{"tech@district.org"}, got.AssignedTechEmails)

	require.NoError(t, UnassignTechnician(ctx, memory, zap.NewNop(), loc.ID, "tech@district.org"))
	got, err = memory.GetLocationByName(ctx, "North High")
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTechEmails)

	err = AssignTechnician(ctx, memory, zap.NewNop(), "missing", "tech@district.org")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestLocationAdmin_EmailsMatchRegardlessOfCase(t *testing.T) {
	ctx := context.Background()
	memory := db.NewMemoryDB()

	loc, err := AddLocation(ctx, memory, zap.NewNop(), "South Middle")
	require.NoError(t, err)

	require.NoError(t, AssignTechnician(ctx, memory, zap.NewNop(), loc.ID, " Tech@District.org "))
	require.NoError(t, AssignTechnician(ctx, memory, zap.NewNop(), loc.ID, "tech@district.org"))
	got, err := memory.GetLocationByName(ctx, "South Middle")
	require.NoError(t, err)
	assert.Equal(t, []string{"tech@district.org"}, got.AssignedTechEmails)

	require.NoError(t, UnassignTechnician(ctx, memory, zap.NewNop(), loc.ID, "TECH@district.org "))
	got, err = memory.GetLocationByName(ctx, "South Middle")
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTechEmails)
}

func TestLocationAdmin_Validation(t *testing.T) {
	ctx := context.Background()
	memory := db.NewMemoryDB()

	tests := []struct {
		name string
		run  func() error
	}{
		{"blank location name", func() error { _, err := AddLocation(ctx, memory, zap.NewNop(), " "); return err }},
		{"blank email", func() error { return AssignTechnician(ctx, memory, zap.NewNop(), "l1", "") }},
		{"invalid email", func() error { return AssignTechnician(ctx, memory, zap.NewNop(), "l1", "not-an-email") }},
		{"blank unassign email", func() error { return UnassignTechnician(ctx, memory, zap.NewNop(), "l1", "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var verr *ValidationError
			assert.ErrorAs(t, tt.run(), &verr)
		})
	}
}
