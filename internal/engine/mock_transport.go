package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/Veraticus/roomrush/internal/model"
)

// MockClaim is one scripted reply to AttemptClaim.
type MockClaim struct {
	Err     error
	Outcome model.ClaimOutcome
}

// MockTransport is a scripted Transport for tests. Claims for a room replay
// its script in order and repeat the last step once the script runs out.
// Rooms without a script answer ClaimTransient.
type MockTransport struct {
	PrepareErr  error
	BeginErr    error
	ResolveErr  map[string]error
	Candidates  map[string][]string
	Claims      map[string][]MockClaim
	OnClaim     func(roomID string)
	ApplicantID string
	calls       []string
	claimCount  map[string]int
	mu          sync.Mutex
}

// NewMockTransport creates a transport that resolves every applicant to applicantID.
func NewMockTransport(applicantID string) *MockTransport {
	return &MockTransport{
		ApplicantID: applicantID,
		ResolveErr:  map[string]error{},
		Candidates:  map[string][]string{},
		Claims:      map[string][]MockClaim{},
		claimCount:  map[string]int{},
	}
}

// Name implements Transport.
func (m *MockTransport) Name() string {
	return "mock"
}

// Prepare implements Transport.
func (m *MockTransport) Prepare(_ context.Context, _ string) (string, error) {
	m.record("prepare")
	if m.PrepareErr != nil {
		return "", m.PrepareErr
	}
	return m.ApplicantID, nil
}

// Begin implements Transport.
func (m *MockTransport) Begin(context.Context) error {
	m.record("begin")
	return m.BeginErr
}

// ResolveCandidates implements Transport.
func (m *MockTransport) ResolveCandidates(_ context.Context, c model.Condition) ([]string, error) {
	m.record("resolve:" + c.CommunityName)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ResolveErr[c.CommunityName]; err != nil {
		return nil, err
	}
	return append([]string(nil), m.Candidates[c.CommunityName]...), nil
}

// ResolveAll implements BulkResolver.
func (m *MockTransport) ResolveAll(ctx context.Context, c model.Condition) ([]string, error) {
	return m.ResolveCandidates(ctx, c)
}

// AttemptClaim implements Transport.
func (m *MockTransport) AttemptClaim(_ context.Context, roomID string) (model.ClaimOutcome, error) {
	m.record("claim:" + roomID)
	if m.OnClaim != nil {
		m.OnClaim(roomID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	script := m.Claims[roomID]
	if len(script) == 0 {
		return model.ClaimTransient, nil
	}
	n := m.claimCount[roomID]
	m.claimCount[roomID] = n + 1
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n].Outcome, script[n].Err
}

// Calls returns every recorded call in order.
func (m *MockTransport) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ClaimCalls returns only the claim calls, as room ids.
func (m *MockTransport) ClaimCalls() []string {
	var out []string
	for _, c := range m.Calls() {
		if room, ok := strings.CutPrefix(c, "claim:"); ok {
			out = append(out, room)
		}
	}
	return out
}

func (m *MockTransport) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}
