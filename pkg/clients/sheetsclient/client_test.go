package sheetsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestSheetRange(t *testing.T) {
	tests := []struct {
		name      string
		sheetName string
		cells     string
		want      string
	}{
		{
			name:      "plain name",
			sheetName: "Waivers",
			cells:     "A1",
			want:      "'Waivers'!A1",
		},
		{
			name:      "name with spaces",
			sheetName: "Form Responses 1",
			cells:     "A1",
			want:      "'Form Responses 1'!A1",
		},
		{
			name:      "name with quote",
			sheetName: "Tech's Sheet",
			cells:     "A1:B2",
			want:      "'Tech''s Sheet'!A1:B2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SheetRange(tt.sheetName, tt.cells))
		})
	}
}

func TestAppendRows(t *testing.T) {
	var path, inputOption string
	var body struct {
		Values [][]interface{} `json:"values"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		inputOption = r.URL.Query().Get("valueInputOption")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	err = client.AppendRows(context.Background(), "sheet-1", "Form Responses 1", [][]interface{}{
		{"1/2/2025, 3:04:05 PM", "ann@example.org"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(path, "/v4/spreadsheets/sheet-1/values/"))
	assert.True(t, strings.HasSuffix(path, ":append"))
	assert.Equal(t, "USER_ENTERED", inputOption)
	require.Len(t, body.Values, 1)
	assert.Equal(t, "ann@example.org", body.Values[0][1])
}

func TestAppendRows_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
	}))
	defer server.Close()

	client, err := NewClient(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	err = client.AppendRows(context.Background(), "sheet-1", "Waivers", [][]interface{}{{"x"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append rows")
}
