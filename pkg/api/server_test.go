package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/support-kiosk/internal/config"
	"github.com/jakechorley/support-kiosk/pkg/auth"
	"github.com/jakechorley/support-kiosk/pkg/clients/identityclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/incidentiq"
	"github.com/jakechorley/support-kiosk/pkg/clients/speechclient"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	identities map[string]*auth.Identity
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	if id, ok := v.identities[token]; ok {
		return id, nil
	}
	return nil, auth.ErrInvalidToken
}

type fakeIdentity struct {
	uids map[string]string
}

func (f *fakeIdentity) LookupUIDByEmail(ctx context.Context, email string) (string, error) {
	if uid, ok := f.uids[email]; ok {
		return uid, nil
	}
	return "", identityclient.ErrUserNotFound
}

type fakeCaller struct {
	env   *upstream.Envelope
	err   error
	calls int
}

func (f *fakeCaller) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*upstream.Envelope, error) {
	f.calls++
	return f.env, f.err
}

type fakeDirectory struct {
	direct      *upstream.Envelope
	search      *upstream.Envelope
	searchCalls int
}

func (f *fakeDirectory) GetUser(ctx context.Context, key string) (*upstream.Envelope, error) {
	return f.direct, nil
}

func (f *fakeDirectory) SearchUsers(ctx context.Context, term string) (*upstream.Envelope, error) {
	f.searchCalls++
	return f.search, nil
}

type fakeGenerator struct {
	env   *upstream.Envelope
	calls int
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, body json.RawMessage) (*upstream.Envelope, error) {
	f.calls++
	return f.env, nil
}

type fakeUploader struct {
	link  string
	err   error
	calls int
	props map[string]string
}

func (f *fakeUploader) Upload(ctx context.Context, name string, data []byte, properties map[string]string) (string, error) {
	f.calls++
	f.props = properties
	return f.link, f.err
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
	cfg   speechclient.AudioConfig
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, cfg speechclient.AudioConfig) (string, error) {
	f.calls++
	f.cfg = cfg
	return f.text, f.err
}

type fixture struct {
	store       *db.MemoryDB
	caller      *fakeCaller
	directory   *fakeDirectory
	generator   *fakeGenerator
	uploader    *fakeUploader
	transcriber *fakeTranscriber
	server      *Server
}

const (
	leaderToken = "leader-token"
	techToken   = "tech-token"
	guestToken  = "guest-token"
	syncKey     = "sync-secret"
)

var fixedNow = time.Date(2025, 3, 10, 15, 4, 5, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := db.NewMemoryDB()
	require.NoError(t, store.UpsertUser(ctx, &db.User{ID: "uid-lead", Email: "lead@example.org", Role: db.RoleLeadership}))
	require.NoError(t, store.UpsertUser(ctx, &db.User{ID: "uid-tech", Email: "tech@example.org", Role: db.RoleTechnician}))

	cfg := config.Defaults()
	f := &fixture{
		store:       store,
		caller:      &fakeCaller{env: &upstream.Envelope{Status: http.StatusOK, Body: json.RawMessage(`{}`)}},
		directory:   &fakeDirectory{},
		generator:   &fakeGenerator{env: &upstream.Envelope{Status: http.StatusOK, Body: json.RawMessage(`{"candidates":[]}`)}},
		uploader:    &fakeUploader{link: "https://drive.example/view/1"},
		transcriber: &fakeTranscriber{text: "hello there"},
	}
	f.server = NewServer(Deps{
		Config: &cfg,
		Store:  store,
		Verifier: &fakeVerifier{identities: map[string]*auth.Identity{
			leaderToken: {UID: "uid-lead", Email: "lead@example.org"},
			techToken:   {UID: "uid-tech", Email: "tech@example.org"},
			guestToken:  {UID: "uid-new", Email: "new@example.org", Name: "New Person"},
		}},
		Identity:    &fakeIdentity{uids: map[string]string{"ann@example.org": "uid-ann"}},
		Directory:   f.directory,
		IncidentIQ:  f.caller,
		Gemini:      f.generator,
		Uploader:    f.uploader,
		Transcriber: f.transcriber,
		SyncAPIKey:  syncKey,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func TestUnmatchedRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found.", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/findUser", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPreauthorizeUser_Auth(t *testing.T) {
	f := newFixture(t)
	body := `{"email":"ann@example.org","name":"Ann","role":"technician"}`

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "no header", headers: nil, want: "Unauthorized: No token provided."},
		{name: "not bearer", headers: map[string]string{"Authorization": "Basic abc"}, want: "Unauthorized: No token provided."},
		{name: "bad token", headers: bearer("forged"), want: "Unauthorized: Invalid token."},
		{name: "technician", headers: bearer(techToken), want: "Forbidden: Insufficient permissions."},
		{name: "unknown user record", headers: bearer(guestToken), want: "Forbidden: Insufficient permissions."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/preauthorizeUser", body, tt.headers)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, tt.want, errorMessage(t, rec))
		})
	}

	_, err := f.store.GetUser(context.Background(), "uid-ann")
	assert.ErrorIs(t, err, db.ErrNotFound, "no user record may be written by a rejected caller")
}

func TestPreauthorizeUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/preauthorizeUser", `{"email":"ann@example.org","name":"Ann","role":"technician"}`, bearer(leaderToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"User ann@example.org has been authorized with the role: technician."}`, rec.Body.String())

	user, err := f.store.GetUser(context.Background(), "uid-ann")
	require.NoError(t, err)
	assert.Equal(t, db.RoleTechnician, user.Role)
}

func TestPreauthorizeUser_Failures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{name: "empty body", body: "", wantStatus: http.StatusBadRequest, wantError: "Missing required fields: email, name, or role."},
		{name: "missing role", body: `{"email":"ann@example.org","name":"Ann"}`, wantStatus: http.StatusBadRequest, wantError: "Missing required fields: email, name, or role."},
		{name: "guest role", body: `{"email":"ann@example.org","name":"Ann","role":"guest"}`, wantStatus: http.StatusBadRequest, wantError: "Invalid role specified."},
		{name: "no account", body: `{"email":"zed@example.org","name":"Zed","role":"leadership"}`, wantStatus: http.StatusNotFound, wantError: msgAccountNotFound},
		{name: "malformed json", body: `{"email":`, wantStatus: http.StatusBadRequest, wantError: "Bad Request: Invalid JSON body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/preauthorizeUser", tt.body, bearer(leaderToken))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, errorMessage(t, rec))
		})
	}
}

func TestIncidentIQProxy_EndToEnd(t *testing.T) {
	var gotPath, gotAuth string
	stubStatus := http.StatusOK
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stubStatus)
		if stubStatus == http.StatusOK {
			w.Write([]byte(`{"UserId":42}`))
		} else {
			w.Write([]byte(`{"Message":"User not found"}`))
		}
	}))
	defer stub.Close()

	f := newFixture(t)
	f.server.deps.IncidentIQ = incidentiq.NewClient(config.IncidentIQConfig{BaseURL: stub.URL, SiteID: "site", Client: "ApiClient"}, "iiq-token")

	rec := f.do(t, http.MethodPost, "/incidentIqProxy", `{"path":"/api/v1.0/users/42","method":"GET"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"UserId":42}`, rec.Body.String())
	assert.Equal(t, "/api/v1.0/users/42", gotPath)
	assert.Equal(t, "Bearer iiq-token", gotAuth)

	stubStatus = http.StatusNotFound
	rec = f.do(t, http.MethodPost, "/incidentIqProxy", `{"path":"/api/v1.0/users/42","method":"GET"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"Message":"User not found"}`, rec.Body.String())
}

func TestIncidentIQProxy_Failures(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{"", `{}`, `{"path":"/x"}`, `{"method":"GET"}`} {
		rec := f.do(t, http.MethodPost, "/incidentIqProxy", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Bad Request: Missing path or method.", errorMessage(t, rec))
	}
	assert.Equal(t, 0, f.caller.calls)

	f.caller.err = errors.New("dial tcp: connection refused")
	rec := f.do(t, http.MethodPost, "/incidentIqProxy", `{"path":"/x","method":"GET"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", errorMessage(t, rec))
}

func TestMissingSecretsAnswerConfigurationError(t *testing.T) {
	f := newFixture(t)
	f.server.deps.Directory = nil
	f.server.deps.IncidentIQ = nil
	f.server.deps.Gemini = nil
	f.server.deps.Uploader = nil
	f.server.deps.Transcriber = nil

	for _, path := range []string{"/findUser", "/incidentIqProxy", "/geminiProxy", "/uploadVideo", "/transcribeAudio"} {
		rec := f.do(t, http.MethodPost, path, `{}`, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, "Server configuration error.", errorMessage(t, rec), path)
	}
}

func TestFindUser(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		f := newFixture(t)
		f.directory.direct = &upstream.Envelope{Status: http.StatusOK, Body: json.RawMessage(`{"UserId":"u1"}`)}

		rec := f.do(t, http.MethodPost, "/findUser", `{"searchTerm":"12345"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"UserId":"u1"}]`, rec.Body.String())
		assert.Equal(t, 0, f.directory.searchCalls)
	})

	t.Run("search fallback", func(t *testing.T) {
		f := newFixture(t)
		f.directory.direct = &upstream.Envelope{Status: http.StatusNotFound, Body: json.RawMessage(`null`)}
		f.directory.search = &upstream.Envelope{Status: http.StatusOK, Body: json.RawMessage(`{"Items":[{"UserId":"u1"},{"UserId":"u2"}]}`)}

		rec := f.do(t, http.MethodPost, "/findUser", `{"searchTerm":"ann"}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"UserId":"u1"},{"UserId":"u2"}]`, rec.Body.String())
		assert.Equal(t, 1, f.directory.searchCalls)
	})

	t.Run("relayed failure", func(t *testing.T) {
		f := newFixture(t)
		f.directory.direct = &upstream.Envelope{Status: http.StatusUnauthorized, Body: json.RawMessage(`{"Message":"bad token"}`)}

		rec := f.do(t, http.MethodPost, "/findUser", `{"searchTerm":"ann"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"Message":"bad token"}`, rec.Body.String())
	})

	t.Run("missing term", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/findUser", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Bad Request: Missing searchTerm.", errorMessage(t, rec))
	})
}

func TestGeminiProxy(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/geminiProxy", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request: Missing 'body' wrapper.", errorMessage(t, rec))
	assert.Equal(t, 0, f.generator.calls)

	rec = f.do(t, http.MethodPost, "/geminiProxy", `{"body":{"contents":[]}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"candidates":[]}`, rec.Body.String())

	f.generator.env = &upstream.Envelope{Status: http.StatusBadRequest, Body: json.RawMessage(`{"error":{"message":"bad"}}`)}
	rec = f.do(t, http.MethodPost, "/geminiProxy", `{"body":{"contents":[]}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"bad"}}`, rec.Body.String())
}

func TestUploadVideo(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{`{}`, `{"fileName":"a.webm","fileData":"aGk="}`, `{"fileData":"aGk=","metadata":{}}`} {
		rec := f.do(t, http.MethodPost, "/uploadVideo", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing fileName, fileData, or metadata.", errorMessage(t, rec))
	}
	assert.Equal(t, 0, f.uploader.calls)

	rec := f.do(t, http.MethodPost, "/uploadVideo", `{"fileName":"a.webm","fileData":"aGk=","metadata":{"userName":"Ann","schoolId":123}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"link":"https://drive.example/view/1"}`, rec.Body.String())
	assert.Equal(t, map[string]string{"userName": "Ann", "schoolId": "123"}, f.uploader.props)

	f.uploader.err = errors.New("quota")
	rec = f.do(t, http.MethodPost, "/uploadVideo", `{"fileName":"a.webm","fileData":"aGk=","metadata":{}}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to upload video.", errorMessage(t, rec))
}

func TestTranscribeAudio(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/transcribeAudio", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing audioData in request body.", errorMessage(t, rec))
	assert.Equal(t, 0, f.transcriber.calls)

	rec = f.do(t, http.MethodPost, "/transcribeAudio", `{"audioData":"aGk=","languageCode":"es-US"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transcript":"hello there"}`, rec.Body.String())
	assert.Equal(t, "es-US", f.transcriber.cfg.LanguageCode)
	assert.Equal(t, "MP4", f.transcriber.cfg.Encoding)
	assert.Equal(t, int64(16000), f.transcriber.cfg.SampleRateHertz)

	f.transcriber.err = errors.New("audio too long")
	rec = f.do(t, http.MethodPost, "/transcribeAudio", `{"audioData":"aGk="}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to transcribe audio. audio too long", errorMessage(t, rec))
}

func TestSyncWaiverFromSheet(t *testing.T) {
	key := map[string]string{"x-api-key": syncKey}

	t.Run("wrong key is always 401", func(t *testing.T) {
		f := newFixture(t)
		for _, headers := range []map[string]string{nil, {"x-api-key": "nope"}, {"x-api-key": syncKey + "x"}} {
			for _, body := range []string{"", `{}`, `{"timestamp":"1/2/2025, 3:04:05 PM"}`, `{bad json`} {
				rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", body, headers)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, "Unauthorized", errorMessage(t, rec))
			}
		}
	})

	t.Run("unset server key rejects everything", func(t *testing.T) {
		f := newFixture(t)
		f.server.deps.SyncAPIKey = ""
		rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", `{"timestamp":"t"}`, map[string]string{"x-api-key": ""})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing timestamp", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", `{"userName":"Ann"}`, key)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Bad Request: Missing waiver data or timestamp.", errorMessage(t, rec))
	})

	t.Run("duplicate skipped", func(t *testing.T) {
		f := newFixture(t)
		body := `{"timestamp":"1/2/2025, 3:04:05 PM","userName":"Ann Lee","ackFuture":"TRUE"}`

		rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", body, key)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"success":true}`, rec.Body.String())

		rec = f.do(t, http.MethodPost, "/syncWaiverFromSheet", body, key)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Duplicate waiver skipped."}`, rec.Body.String())

		rec = f.do(t, http.MethodPost, "/syncWaiverFromSheet", `{"timestamp":"1/3/2025, 9:00:00 AM","userName":"Bob"}`, key)
		assert.Equal(t, http.StatusCreated, rec.Code)

		exists, err := f.store.WaiverExistsByTimestamp(context.Background(), "1/3/2025, 9:00:00 AM")
		require.NoError(t, err)
		assert.True(t, exists)

		waivers, err := f.store.ListWaivers(context.Background())
		require.NoError(t, err)
		require.Len(t, waivers, 2)
		matching := 0
		for _, w := range waivers {
			if w.Timestamp == "1/2/2025, 3:04:05 PM" {
				matching++
			}
		}
		assert.Equal(t, 1, matching)
	})

	t.Run("typed sheet cells", func(t *testing.T) {
		f := newFixture(t)
		bodies := []string{
			`{"timestamp":"1/2/2025, 3:04:05 PM","schoolId":123456}`,
			`{"timestamp":"1/2/2025, 3:05:00 PM","isFirstRequest":true}`,
			`{"timestamp":45678.5,"ackCare":1}`,
		}
		for _, body := range bodies {
			rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", body, key)
			assert.Equal(t, http.StatusCreated, rec.Code, body)
		}

		waivers, err := f.store.ListWaivers(context.Background())
		require.NoError(t, err)
		byTimestamp := map[string]db.Waiver{}
		for _, w := range waivers {
			byTimestamp[w.Timestamp] = w
		}
		assert.Equal(t, "123456", byTimestamp["1/2/2025, 3:04:05 PM"].SchoolID)
		assert.Equal(t, "true", byTimestamp["1/2/2025, 3:05:00 PM"].IsFirstRequest)
		assert.True(t, bool(byTimestamp["45678.5"].AckCare))

		rec := f.do(t, http.MethodPost, "/syncWaiverFromSheet", `{"timestamp":45678.5}`, key)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
