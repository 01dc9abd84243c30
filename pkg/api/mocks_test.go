package api

import (
	"context"
	"time"

	"github.com/jakechorley/dispatch-vote/internal/config"
	"github.com/jakechorley/dispatch-vote/pkg/core/model"
	"github.com/jakechorley/dispatch-vote/pkg/core/tokens"
	"github.com/jakechorley/dispatch-vote/pkg/db"
)

const testSalt = "0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Addr: ":0", PublicBaseURL: "https://vote.example.com"},
		Tokens: config.TokensConfig{Salt: testSalt, TTLHours: 24},
	}
}

// mockStore is an in-memory db.Database
type mockStore struct {
	tokens      map[string]*db.Token
	contexts    map[string]*db.RawContext
	people      map[string]*db.Person
	weather     map[string]*model.JobWeather
	assignments map[string]*model.Assignment
	jobVotes    []model.JobVote

	upsertErr  error
	weatherErr error
	upserts    []db.VoteUpsert
	activity   []string
}

func newMockStore() *mockStore {
	return &mockStore{
		tokens:      map[string]*db.Token{},
		contexts:    map[string]*db.RawContext{},
		people:      map[string]*db.Person{},
		weather:     map[string]*model.JobWeather{},
		assignments: map[string]*model.Assignment{},
	}
}

func (m *mockStore) addToken(raw, batchID, personID string) {
	hash := tokens.LookupKey(raw, testSalt)
	now := time.Now()
	m.tokens[hash] = &db.Token{
		ID:            "tok-" + raw,
		BatchID:       batchID,
		PersonID:      personID,
		TokenHash:     hash,
		ExpiresAt:     now.Add(time.Hour),
		FirstViewedAt: &now,
		Person:        db.Person{ID: personID, DisplayName: "Jane", Role: string(model.RoleEstimator)},
	}
}

func (m *mockStore) GetTokenByHash(ctx context.Context, tokenHash string) (*db.Token, error) {
	t, ok := m.tokens[tokenHash]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *mockStore) MarkTokenViewed(ctx context.Context, tokenID string) error { return nil }

func (m *mockStore) MarkPersonActivity(ctx context.Context, personID string, status string) error {
	m.activity = append(m.activity, personID+":"+status)
	return nil
}

func (m *mockStore) GetContextRows(ctx context.Context, batchID, personID string) (*db.RawContext, error) {
	if raw, ok := m.contexts[batchID]; ok {
		return raw, nil
	}
	return &db.RawContext{Batch: db.Batch{ID: batchID}}, nil
}

func (m *mockStore) UpsertVote(ctx context.Context, vote db.VoteUpsert) (*db.StoredVote, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserts = append(m.upserts, vote)
	return &db.StoredVote{
		Vote:   model.Vote{ItemKey: vote.ItemKey, VoteValue: vote.VoteValue, VoteReason: vote.VoteReason, DelayMinutes: vote.DelayMinutes},
		Status: "voted",
		Counts: &model.Counts{Total: 2, Voted: 1, Remaining: 1},
	}, nil
}

func (m *mockStore) GetJobVotes(ctx context.Context, batchID string, key model.ItemKey) ([]model.JobVote, error) {
	return m.jobVotes, nil
}

func (m *mockStore) GetJobWeather(ctx context.Context, jobID, forecastDate string) (*model.JobWeather, error) {
	if m.weatherErr != nil {
		return nil, m.weatherErr
	}
	w, ok := m.weather[jobID]
	if !ok {
		return nil, db.NotFound("no weather for job %s", jobID)
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
	a.Vote = update.Vote
	a.Status = model.AssignmentVoted
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
	return nil, db.ErrNotFound
}

func (m *mockStore) InsertBatch(ctx context.Context, batch *db.Batch) error { return nil }
func (m *mockStore) InsertToken(ctx context.Context, token *db.Token) error { return nil }

func (m *mockStore) RevokeToken(ctx context.Context, tokenID string, at time.Time) error {
	return nil
}

func (m *mockStore) ListBatchVotes(ctx context.Context, batchID string) ([]db.BatchVote, error) {
	return nil, nil
}

var _ db.Database = (*mockStore)(nil)
