package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/pkg/db"
)

func TestKioskTimestamp(t *testing.T) {
	// 20:04:05 UTC on 2 Jan is 2:04:05 PM in Chicago (CST, UTC-6)
	got := KioskTimestamp(time.Date(2025, 1, 2, 20, 4, 5, 0, time.UTC))
	assert.Equal(t, "1/2/2025, 2:04:05 PM", got)
}

func TestCreateWaiver_StampsTimestamp(t *testing.T) {
	ctx := context.Background()
	memory := db.NewMemoryDB()
	now := time.Date(2025, 1, 2, 20, 4, 5, 0, time.UTC)

	waiver := &db.Waiver{UserName: "Ann Lee", WaiverReason: "Cracked screen"}
	require.NoError(t, CreateWaiver(ctx, memory, zap.NewNop(), waiver, now))
	assert.Equal(t, "1/2/2025, 2:04:05 PM", waiver.Timestamp)

	kept := &db.Waiver{UserName: "Ann Lee", WaiverReason: "x", Timestamp: "given"}
	require.NoError(t, CreateWaiver(ctx, memory, zap.NewNop(), kept, now))
	assert.Equal(t, "given", kept.Timestamp)
}

func TestCreateWaiver_Validation(t *testing.T) {
	err := CreateWaiver(context.Background(), db.NewMemoryDB(), zap.NewNop(), &db.Waiver{UserName: "Ann"}, time.Now())

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateMessage(t *testing.T) {
	ctx := context.Background()
	memory := db.NewMemoryDB()

	msg := &db.Message{UserName: "Ann", UserLocation: "North High", Summary: "Needs help"}
	require.NoError(t, CreateMessage(ctx, memory, zap.NewNop(), msg))

	stored, err := memory.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Needs help", stored.Summary)

	err = CreateMessage(ctx, memory, zap.NewNop(), &db.Message{UserName: "Ann"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
