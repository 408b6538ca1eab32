package services

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/jakechorley/support-kiosk/pkg/clients/gmailclient"
	"github.com/jakechorley/support-kiosk/pkg/clients/speechclient"
	"github.com/jakechorley/support-kiosk/pkg/db"
	"github.com/jakechorley/support-kiosk/pkg/upstream"
)

// mockIdentity implements IdentityLookup
type mockIdentity struct {
	uids  map[string]string
	err   error
	calls int
}

func (m *mockIdentity) LookupUIDByEmail(ctx context.Context, email string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.uids[email], nil
}

// mockUserStore implements PreauthorizeStore and RevokeStore
type mockUserStore struct {
	upserted []db.User
	roles    map[string]db.Role
	err      error
}

func (m *mockUserStore) UpsertUser(ctx context.Context, user *db.User) error {
	if m.err != nil {
		return m.err
	}
	m.upserted = append(m.upserted, *user)
	return nil
}

func (m *mockUserStore) SetUserRole(ctx context.Context, id string, role db.Role) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.roles[id]; !ok {
		return db.ErrNotFound
	}
	m.roles[id] = role
	return nil
}

// mockDirectory implements UserDirectory
type mockDirectory struct {
	direct      *upstream.Envelope
	directErr   error
	search      *upstream.Envelope
	searchErr   error
	searchCalls []string
}

func (m *mockDirectory) GetUser(ctx context.Context, key string) (*upstream.Envelope, error) {
	return m.direct, m.directErr
}

func (m *mockDirectory) SearchUsers(ctx context.Context, term string) (*upstream.Envelope, error) {
	m.searchCalls = append(m.searchCalls, term)
	return m.search, m.searchErr
}

// mockCaller implements upstream.Caller
type mockCaller struct {
	env    *upstream.Envelope
	err    error
	calls  int
	method string
	path   string
	body   []byte
}

func (m *mockCaller) Do(ctx context.Context, method, path string, query url.Values, body []byte) (*upstream.Envelope, error) {
	m.calls++
	m.method = method
	m.path = path
	m.body = body
	return m.env, m.err
}

// mockGenerator implements ContentGenerator
type mockGenerator struct {
	env   *upstream.Envelope
	err   error
	calls int
	body  json.RawMessage
}

func (m *mockGenerator) GenerateContent(ctx context.Context, body json.RawMessage) (*upstream.Envelope, error) {
	m.calls++
	m.body = body
	return m.env, m.err
}

// mockMailer implements Mailer
type mockMailer struct {
	sent []gmailclient.Email
	err  error
}

func (m *mockMailer) SendHTML(ctx context.Context, email gmailclient.Email) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

// mockAppender implements RowAppender
type mockAppender struct {
	spreadsheetID string
	sheetName     string
	rows          [][]interface{}
	err           error
}

func (m *mockAppender) AppendRows(ctx context.Context, spreadsheetID, sheetName string, values [][]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.spreadsheetID = spreadsheetID
	m.sheetName = sheetName
	m.rows = append(m.rows, values...)
	return nil
}

// mockUploader implements Uploader
type mockUploader struct {
	name  string
	data  []byte
	props map[string]string
	link  string
	err   error
	calls int
}

func (m *mockUploader) Upload(ctx context.Context, name string, data []byte, properties map[string]string) (string, error) {
	m.calls++
	m.name = name
	m.data = data
	m.props = properties
	return m.link, m.err
}

// mockTranscriber implements Transcriber
type mockTranscriber struct {
	audio      []byte
	cfg        speechclient.AudioConfig
	transcript string
	err        error
	calls      int
}

func (m *mockTranscriber) Transcribe(ctx context.Context, audio []byte, cfg speechclient.AudioConfig) (string, error) {
	m.calls++
	m.audio = audio
	m.cfg = cfg
	return m.transcript, m.err
}

// mockCloseStore implements CloseTicketStore with per-id failures
type mockCloseStore struct {
	errs   map[string]error
	closed map[string]string
}

func (m *mockCloseStore) CloseTicket(ctx context.Context, id, notes string, closedAt time.Time) error {
	if err, ok := m.errs[id]; ok {
		return err
	}
	if m.closed == nil {
		m.closed = map[string]string{}
	}
	m.closed[id] = notes
	return nil
}
