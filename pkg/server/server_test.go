package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/agent"
	"github.com/driftwood-dev/codeagent/pkg/mcp"
	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/skill"
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
)

type stubProvider struct{ name string }

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Stream(ctx context.Context, system string, messages []message.Message, tools []provider.ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	out := make(chan message.StreamChunk, 1)
	out <- message.Text("hello from the stub")
	close(out)
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cwd := t.TempDir()

	providers := provider.NewRegistry(provider.AliasTable{provider.AliasSmart: "stub/model"})
	providers.Register(&stubProvider{name: "stub"})

	snap, err := snapshot.OpenInMemory(cwd)
	require.NoError(t, err)
	sessions, err := session.NewStore(t.TempDir(), session.HeuristicTitleProvider{})
	require.NoError(t, err)

	f, err := agent.NewFacadeBuilder(cwd).
		WithProviders(providers).
		WithSnapshot(snap).
		WithSessions(sessions).
		WithMCP(mcp.NewManager(), nil).
		WithSkills(skill.NewManager(nil)).
		Build(context.Background())
	require.NoError(t, err)

	return New(f, nil)
}

func TestHealthEndpointReportsOK(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestNewSessionEndpointReturnsID(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["session_id"])
}

func TestChatEndpointStreamsTextEvent(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var gotText bool
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt chatEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		if evt.Kind == "text" && evt.Text == "hello from the stub" {
			gotText = true
		}
	}
	assert.True(t, gotText, "expected a text event echoing the stub provider's response")
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{"message":""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
