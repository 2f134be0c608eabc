package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pemilihan-be/internal/config"
	"pemilihan-be/internal/container"
	"pemilihan-be/internal/domain"
	"pemilihan-be/pkg/errors"
	"pemilihan-be/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret-handler-test-secret"

type testServer struct {
	container  *container.Container
	router     http.Handler
	candidates []domain.Candidate
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment:           "test",
		SupabaseJWTSecret:     testSecret,
		EnforceElectionWindow: true,
	}
	c, err := container.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })

	candidates, err := c.Services.Candidates.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	return &testServer{container: c, router: NewRouter(c), candidates: candidates}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, role domain.Role) map[string]string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          "staff-1",
		"email":        "staff@sekolah.sch.id",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"app_metadata": map[string]interface{}{"role": string(role)},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorType {
	t.Helper()
	var resp errors.ErrorResponse
	decodeBody(t, rec, &resp)
	return resp.Error.Type
}

func TestSubmitBallot(t *testing.T) {
	s := newTestServer(t)
	candidateID := s.candidates[0].ID

	rec := s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "  Dewi   Lestari ", "class": "XII IPA 1", "candidate_id": candidateID,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var first domain.VoteResult
	decodeBody(t, rec, &first)
	assert.Equal(t, domain.VoteStatusRecorded, first.Status)
	assert.Equal(t, candidateID, first.CandidateID)

	// Same identity after normalization, different choice
	rec = s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Dewi Lestari", "class": "XII IPA 1", "candidate_id": s.candidates[1].ID,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var second domain.VoteResult
	decodeBody(t, rec, &second)
	assert.Equal(t, domain.VoteStatusAlreadyVoted, second.Status)
	assert.Equal(t, first.VoterID, second.VoterID)

	tally, err := s.container.Services.Voting.GetTally(context.Background())
	require.NoError(t, err)
	assert.Equal(t, candidateID, tally[0].CandidateID)
	assert.Equal(t, 1, tally[0].Votes)
}

func TestSubmitBallot_Rejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantType   errors.ErrorType
	}{
		{
			name:       "missing name",
			body:       map[string]interface{}{"name": " ", "class": "X-1", "candidate_id": s.candidates[0].ID},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
		{
			name:       "unknown candidate",
			body:       map[string]interface{}{"name": "Rudi", "class": "X-1", "candidate_id": 9999},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
		{
			name:       "unknown field",
			body:       map[string]interface{}{"name": "Rudi", "class": "X-1", "candidate_id": 1, "extra": true},
			wantStatus: http.StatusBadRequest,
			wantType:   errors.ErrorTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/ballots", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantType, errorType(t, rec))
		})
	}
}

func TestSubmitBallot_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Environment:      "test",
		RedisURL:         "redis://" + mr.Addr(),
		BallotRateLimit:  2,
		BallotRateWindow: time.Minute,
	}
	c, err := container.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })
	require.True(t, c.Services.Limiter.Enabled())

	candidates, err := c.Services.Candidates.List(context.Background())
	require.NoError(t, err)
	s := &testServer{container: c, router: NewRouter(c), candidates: candidates}

	codes := make([]int, 0, 3)
	for _, name := range []string{"Rudi", "Sari", "Tono"} {
		rec := s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
			"name": name, "class": "X-1", "candidate_id": candidates[0].ID,
		}, nil)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)

	// Reads are never limited
	rec := s.do(t, http.MethodGet, "/api/v1/results", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitBallot_ElectionClosed(t *testing.T) {
	s := newTestServer(t)

	ended := time.Now().Add(-time.Hour)
	rec := s.do(t, http.MethodPut, "/api/v1/admin/election", map[string]interface{}{
		"election_name": "Pemilihan OSIS",
		"start_date":    ended.Add(-24 * time.Hour),
		"end_date":      ended,
		"is_active":     true,
		"allow_voting":  true,
	}, bearer(t, domain.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Rudi", "class": "X-1", "candidate_id": s.candidates[0].ID,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.ErrorTypeElectionClosed, errorType(t, rec))

	rec = s.do(t, http.MethodGet, "/api/v1/election", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info domain.ElectionInfo
	decodeBody(t, rec, &info)
	assert.Equal(t, domain.ElectionStatusEnded, info.Status)
}

func TestVoterStatus(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/voters/status?name=Rudi&class=X-1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status domain.VoterStatus
	decodeBody(t, rec, &status)
	assert.False(t, status.Exists)
	assert.False(t, status.HasVoted)

	s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Rudi", "class": "X-1", "candidate_id": s.candidates[0].ID,
	}, nil)

	rec = s.do(t, http.MethodGet, "/api/v1/voters/status?name=rudi&class=X-1", nil, nil)
	decodeBody(t, rec, &status)
	assert.False(t, status.Exists, "names are case-sensitive")

	rec = s.do(t, http.MethodGet, "/api/v1/voters/status?name=Rudi&class=X-1", nil, nil)
	decodeBody(t, rec, &status)
	assert.True(t, status.Exists)
	assert.True(t, status.HasVoted)
}

func TestGetResults_ETag(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Rudi", "class": "X-1", "candidate_id": s.candidates[2].ID,
	}, nil)
	_, err := s.container.Services.Voting.Refresh(context.Background())
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/v1/results", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var results domain.Results
	decodeBody(t, rec, &results)
	assert.Equal(t, 1, results.TotalVotes)
	require.NotNil(t, results.Winner)
	assert.Equal(t, s.candidates[2].ID, results.Winner.CandidateID)
	assert.Equal(t, 100, results.Winner.Percentage)

	rec = s.do(t, http.MethodGet, "/api/v1/results", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestGetStats(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats domain.ElectionStats
	decodeBody(t, rec, &stats)
	assert.Equal(t, len(s.candidates), stats.TotalCandidates)
	assert.Zero(t, stats.TotalVoters)
	assert.Zero(t, stats.ParticipationPercent)
}

func TestAdminRoutes_RequireStaff(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"garbage token", map[string]string{"Authorization": "Bearer a.b.c"}, http.StatusUnauthorized},
		{"member", bearer(t, domain.RoleMember), http.StatusForbidden},
		{"panitia", bearer(t, domain.RolePanitia), http.StatusOK},
		{"admin", bearer(t, domain.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/v1/admin/voters", nil, tt.headers)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAdminRoutes_IgnoreSelfAssignedRole(t *testing.T) {
	s := newTestServer(t)

	// user_metadata is writable by the user through the auth API
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "student-1",
		"email":         "siswa@sekolah.sch.id",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"app_metadata":  map[string]interface{}{"provider": "email"},
		"user_metadata": map[string]interface{}{"role": "admin"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	headers := map[string]string{"Authorization": "Bearer " + token}

	rec := s.do(t, http.MethodGet, "/api/v1/admin/voters", nil, headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/tally/resync", nil, headers)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCandidateCRUD(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, domain.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/candidates", map[string]interface{}{
		"name": "Maya Putri", "class": "XI IPA 2",
	}, admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.Candidate
	decodeBody(t, rec, &created)
	assert.Equal(t, "Maya Putri", created.Name)

	path := fmt.Sprintf("/api/v1/admin/candidates/%d", created.ID)
	rec = s.do(t, http.MethodPut, path, map[string]interface{}{"name": "Maya P."}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%d", created.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched domain.Candidate
	decodeBody(t, rec, &fetched)
	assert.Equal(t, "Maya P.", fetched.Name)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/candidates", map[string]interface{}{"name": "  "}, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, path, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/candidates/%d", created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletedCandidateBecomesOrphan(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, domain.RoleAdmin)
	target := s.candidates[0]

	s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Rudi", "class": "X-1", "candidate_id": target.ID,
	}, nil)

	rec := s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/candidates/%d", target.ID), nil, admin)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/tally/resync", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var results domain.Results
	decodeBody(t, rec, &results)
	assert.Equal(t, 1, results.TotalVotes)
	assert.Equal(t, 1, results.Orphans)
	require.NotNil(t, results.Winner)
	assert.True(t, results.Winner.Orphan)
	assert.Equal(t, fmt.Sprint(target.ID), results.Winner.Name)
}

func TestVoterAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := bearer(t, domain.RoleAdmin)

	for _, name := range []string{"Rudi", "Sari"} {
		rec := s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
			"name": name, "class": "X-1", "candidate_id": s.candidates[0].ID,
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/admin/voters?filter=voted&search=sar", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var voters []domain.VoterListItem
	decodeBody(t, rec, &voters)
	require.Len(t, voters, 1)
	assert.Equal(t, "Sari", voters[0].Name)
	assert.Equal(t, s.candidates[0].Name, voters[0].VotedForName)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/voters?filter=bogus", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/voters/%d", voters[0].ID), nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/voters/%d", voters[0].ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A deleted voter may vote again
	rec = s.do(t, http.MethodPost, "/api/v1/ballots", map[string]interface{}{
		"name": "Sari", "class": "X-1", "candidate_id": s.candidates[1].ID,
	}, nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHealthAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "demo", health.Mode)

	rec = s.do(t, http.MethodGet, "/api/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrorTypeNotFound, errorType(t, rec))
}

func TestHealth_Degraded(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"database": func(context.Context) error { return fmt.Errorf("connection refused") },
	}, func() int { return 2 }, "postgres", logger.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var health HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, "unhealthy", health.Checks["database"])
	assert.Equal(t, 2, health.Subscribers)
}

func readEvent(t *testing.T, reader *bufio.Reader) *domain.Results {
	t.Helper()

	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && data != "":
			require.Equal(t, "results", event)
			var results domain.Results
			require.NoError(t, json.Unmarshal([]byte(data), &results))
			return &results
		}
	}
}

func TestStreamResults(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/results/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	initial := readEvent(t, reader)
	assert.Zero(t, initial.TotalVotes)
	assert.Nil(t, initial.Winner)
	assert.Len(t, initial.Items, len(s.candidates))

	require.Eventually(t, func() bool {
		return s.container.Services.Aggregator.SubscriberCount() >= 2
	}, time.Second, 10*time.Millisecond, "stream subscribes next to the voting service")

	_, err = s.container.Services.Voting.SubmitBallot(ctx, &domain.BallotRequest{
		Name: "Rudi", Class: "X-1", CandidateID: s.candidates[1].ID,
	})
	require.NoError(t, err)

	update := readEvent(t, reader)
	assert.Equal(t, 1, update.TotalVotes)
	require.NotNil(t, update.Winner)
	assert.Equal(t, s.candidates[1].ID, update.Winner.CandidateID)
}
