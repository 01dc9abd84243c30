package services

import (
	"context"
	"testing"
	"time"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/clients/sheetsclient"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/tokens"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const testSalt = "0123456789abcdef"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: ":8080", PublicBaseURL: "https://vote.example.com"},
		Tokens: config.TokensConfig{Salt: testSalt, TTLHours: 48},
		Export: config.ExportConfig{SheetID: "sheet-1"},
	}
}

// freezeTime pins now() for the duration of a test
func freezeTime(t *testing.T) {
	t.Helper()
	now = func() time.Time { return testNow }
	t.Cleanup(func() { now = time.Now })
}

// mockStore implements db.Database in memory and records calls
type mockStore struct {
	tokensByHash map[string]*db.Token
	contexts     map[string]*db.RawContext // keyed by batch id
	people       map[string]*db.Person
	batches      map[string]*db.Batch
	weather      map[string]*model.JobWeather
	assignments  map[string]*model.Assignment
	jobVotes     []model.JobVote
	batchVotes   []db.BatchVote

	upsertResult *db.StoredVote
	upsertErr    error
	activityErr  error
	getTokenErr  error

	upserts         []db.VoteUpsert
	activity        []string
	viewed          []string
	insertedTokens  []*db.Token
	insertedBatches []*db.Batch
	revoked         map[string]time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		tokensByHash: map[string]*db.Token{},
		contexts:     map[string]*db.RawContext{},
		people:       map[string]*db.Person{},
		batches:      map[string]*db.Batch{},
		weather:      map[string]*model.JobWeather{},
		assignments:  map[string]*model.Assignment{},
		revoked:      map[string]time.Time{},
	}
}

// addToken registers raw as a valid token for person in batch
func (m *mockStore) addToken(raw, id, batchID string, person db.Person, expiresAt time.Time) *db.Token {
	tok := &db.Token{
		ID:        id,
		BatchID:   batchID,
		PersonID:  person.ID,
		TokenHash: tokens.LookupKey(raw, testSalt),
		ExpiresAt: expiresAt,
		Person:    person,
	}
	m.tokensByHash[tok.TokenHash] = tok
	p := person
	m.people[person.ID] = &p
	return tok
}

func (m *mockStore) GetTokenByHash(ctx context.Context, tokenHash string) (*db.Token, error) {
	if m.getTokenErr != nil {
		return nil, m.getTokenErr
	}
	tok, ok := m.tokensByHash[tokenHash]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *tok
	return &copied, nil
}

func (m *mockStore) MarkTokenViewed(ctx context.Context, tokenID string) error {
	m.viewed = append(m.viewed, tokenID)
	return nil
}

func (m *mockStore) MarkPersonActivity(ctx context.Context, personID string, status string) error {
	m.activity = append(m.activity, personID+":"+status)
	return m.activityErr
}

func (m *mockStore) GetContextRows(ctx context.Context, batchID, personID string) (*db.RawContext, error) {
	raw, ok := m.contexts[batchID]
	if !ok {
		return &db.RawContext{Batch: db.Batch{ID: batchID}}, nil
	}
	return raw, nil
}

func (m *mockStore) UpsertVote(ctx context.Context, vote db.VoteUpsert) (*db.StoredVote, error) {
	m.upserts = append(m.upserts, vote)
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	if m.upsertResult != nil {
		return m.upsertResult, nil
	}
	votedAt := testNow
	return &db.StoredVote{
		Vote: model.Vote{
			ItemKey:      vote.ItemKey,
			VoteValue:    vote.VoteValue,
			VoteReason:   vote.VoteReason,
			DelayMinutes: vote.DelayMinutes,
			VotedAt:      &votedAt,
		},
		Status:    "voted",
		FirstVote: len(m.upserts) == 1,
	}, nil
}

func (m *mockStore) GetJobVotes(ctx context.Context, batchID string, key model.ItemKey) ([]model.JobVote, error) {
	return m.jobVotes, nil
}

func (m *mockStore) GetJobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	w, ok := m.weather[jobID+"|"+forecastDate]
	if !ok {
		return nil, db.NotFound("no weather for job %s on %s", jobID, forecastDate)
	}
	return w, nil
}

func (m *mockStore) ListAssignments(ctx context.Context, campaignID, personID string) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range m.assignments {
		if a.CampaignID == campaignID && a.PersonID == personID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateAssignment(ctx context.Context, update db.AssignmentUpdate) (*model.Assignment, error) {
	a, ok := m.assignments[update.ID]
	if !ok {
		return nil, db.NotFound("assignment %s not found", update.ID)
	}
	votedAt := testNow
	a.Vote = update.Vote
	a.DelayMinutes = update.DelayMinutes
	a.Comment = update.Comment
	a.Status = model.AssignmentVoted
	a.VotedAt = &votedAt
	copied := *a
	return &copied, nil
}

func (m *mockStore) GetPerson(ctx context.Context, personID string) (*db.Person, error) {
	p, ok := m.people[personID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) GetBatch(ctx context.Context, batchID string) (*db.Batch, error) {
	b, ok := m.batches[batchID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return b, nil
}

func (m *mockStore) InsertBatch(ctx context.Context, batch *db.Batch) error {
	m.insertedBatches = append(m.insertedBatches, batch)
	return nil
}

func (m *mockStore) InsertToken(ctx context.Context, token *db.Token) error {
	m.insertedTokens = append(m.insertedTokens, token)
	return nil
}

func (m *mockStore) RevokeToken(ctx context.Context, tokenID string, at time.Time) error {
	m.revoked[tokenID] = at
	return nil
}

func (m *mockStore) ListBatchVotes(ctx context.Context, batchID string) ([]db.BatchVote, error) {
	return m.batchVotes, nil
}

var _ db.Database = (*mockStore)(nil)

// mockMailer records sent emails
type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	return nil
}

// mockExporter records exports
type mockExporter struct {
	exports []*sheetsclient.VoteExport
	sheetID string
}

func (m *mockExporter) ExportVotes(ctx context.Context, spreadsheetID string, export *sheetsclient.VoteExport) (string, error) {
	m.sheetID = spreadsheetID
	m.exports = append(m.exports, export)
	return "Mon Jun 02 2025 - Fri Jun 06 2025", nil
}
