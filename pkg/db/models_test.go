package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStatus_CanTransition(t *testing.T) {
	assert.True(t, StatusOpen.CanTransition(StatusClosed))
	assert.False(t, StatusClosed.CanTransition(StatusOpen))
	assert.False(t, StatusClosed.CanTransition(StatusClosed))
	assert.False(t, StatusOpen.CanTransition(StatusOpen))
}

func TestRole(t *testing.T) {
	tests := []struct {
		role       Role
		valid      bool
		assignable bool
	}{
		{RoleTechnician, true, true},
		{RoleLeadership, true, true},
		{RoleGuest, true, false},
		{Role("admin"), false, false},
		{Role(""), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.role.Valid())
			assert.Equal(t, tt.assignable, tt.role.Assignable())
		})
	}
}

func TestFlag_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Flag
	}{
		{`true`, true},
		{`false`, false},
		{`null`, false},
		{`1`, true},
		{`0`, false},
		{`"Yes"`, true},
		{`"TRUE"`, true},
		{`"x"`, true},
		{`"No"`, false},
		{`""`, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var f Flag
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestFlag_UnmarshalJSON_Invalid(t *testing.T) {
	var f Flag
	assert.Error(t, json.Unmarshal([]byte(`{}`), &f))
}

func TestWaiver_DecodesSheetPayload(t *testing.T) {
	payload := `{
		"timestamp": "3/14/2025, 9:15:00 AM",
		"userName": "Ann Lee",
		"userEmail": "ann@district.org",
		"isFirstRequest": "Yes",
		"ackFuture": "TRUE",
		"ackCare": false
	}`

	var w Waiver
	require.NoError(t, json.Unmarshal([]byte(payload), &w))

	assert.Equal(t, "3/14/2025, 9:15:00 AM", w.Timestamp)
	assert.Equal(t, "Yes", w.IsFirstRequest)
	assert.Equal(t, "Yes", w.AckFuture.YesNo())
	assert.Equal(t, "No", w.AckCare.YesNo())
}

func TestText_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Text
	}{
		{`"S-100"`, "S-100"},
		{`123456`, "123456"},
		{`45678.5`, "45678.5"},
		{`true`, "true"},
		{`false`, "false"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var v Text
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestText_UnmarshalJSON_RejectsContainers(t *testing.T) {
	var v Text
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &v))
}

func TestWaiver_DecodesTypedSheetCells(t *testing.T) {
	payload := `{
		"timestamp": 45678.5,
		"userName": "Ann Lee",
		"schoolId": 123456,
		"isFirstRequest": true,
		"ackCare": 1
	}`

	var w Waiver
	require.NoError(t, json.Unmarshal([]byte(payload), &w))

	assert.Equal(t, "45678.5", w.Timestamp)
	assert.Equal(t, "Ann Lee", w.UserName)
	assert.Equal(t, "123456", w.SchoolID)
	assert.Equal(t, "true", w.IsFirstRequest)
	assert.True(t, bool(w.AckCare))
}
