package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillreg/pkg/index"
	"github.com/jingkaihe/skillreg/pkg/scoring"
	"github.com/jingkaihe/skillreg/pkg/skills"
	"github.com/jingkaihe/skillreg/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRegistry implements Registry for handler tests
type mockRegistry struct {
	listFunc   func(ctx context.Context) (*index.Index, error)
	scoreFunc  func(ctx context.Context, name string) (*scoring.Report, error)
	tokensFunc func(ctx context.Context, name string) (*tokens.Report, error)
}

func (m *mockRegistry) List(ctx context.Context) (*index.Index, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return &index.Index{Skills: []index.Entry{}}, nil
}

func (m *mockRegistry) Score(ctx context.Context, name string) (*scoring.Report, error) {
	if m.scoreFunc != nil {
		return m.scoreFunc(ctx, name)
	}
	return nil, errors.Wrap(ErrSkillNotFound, name)
}

func (m *mockRegistry) Tokens(ctx context.Context, name string) (*tokens.Report, error) {
	if m.tokensFunc != nil {
		return m.tokensFunc(ctx, name)
	}
	return nil, errors.Wrap(ErrSkillNotFound, name)
}

func newTestServer(t *testing.T, registry Registry) *Server {
	t.Helper()
	s, err := NewServer(&ServerConfig{Host: "localhost", Port: 8080}, registry)
	require.NoError(t, err)
	return s
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name          string
		config        *ServerConfig
		expectedError string
	}{
		{
			name:   "valid config",
			config: &ServerConfig{Host: "localhost", Port: 8080},
		},
		{
			name:          "empty host",
			config:        &ServerConfig{Host: "", Port: 8080},
			expectedError: "host cannot be empty",
		},
		{
			name:          "invalid port - too low",
			config:        &ServerConfig{Host: "localhost", Port: 0},
			expectedError: "port must be between 1 and 65535",
		},
		{
			name:          "invalid port - too high",
			config:        &ServerConfig{Host: "localhost", Port: 65536},
			expectedError: "port must be between 1 and 65535",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewServerRequiresRegistry(t *testing.T) {
	_, err := NewServer(&ServerConfig{Host: "localhost", Port: 8080}, nil)
	assert.Error(t, err)
}

func TestServer_handleListSkills(t *testing.T) {
	registry := &mockRegistry{
		listFunc: func(context.Context) (*index.Index, error) {
			return &index.Index{
				Version: index.Version,
				Count:   3,
				Skills: []index.Entry{
					{Name: "alpha", Category: "docs", Badge: scoring.BadgeVerified},
					{Name: "beta", Category: "docs/pdf", Badge: scoring.BadgeFlagged},
					{Name: "gamma", Category: "data", Badge: scoring.BadgeVerified},
				},
			}, nil
		},
	}
	s := newTestServer(t, registry)

	t.Run("all", func(t *testing.T) {
		w := serve(s, "GET", "/api/skills")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var idx index.Index
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &idx))
		assert.Equal(t, 3, idx.Count)
	})

	t.Run("category filter includes subcategories", func(t *testing.T) {
		var idx index.Index
		require.NoError(t, json.Unmarshal(serve(s, "GET", "/api/skills?category=docs").Body.Bytes(), &idx))
		assert.Equal(t, 2, idx.Count)
	})

	t.Run("badge filter", func(t *testing.T) {
		var idx index.Index
		require.NoError(t, json.Unmarshal(serve(s, "GET", "/api/skills?badge=verified").Body.Bytes(), &idx))
		require.Equal(t, 2, idx.Count)
		assert.Equal(t, "alpha", idx.Skills[0].Name)
		assert.Equal(t, "gamma", idx.Skills[1].Name)
	})
}

func TestServer_handleListSkillsError(t *testing.T) {
	s := newTestServer(t, &mockRegistry{
		listFunc: func(context.Context) (*index.Index, error) { return nil, errors.New("disk gone") },
	})

	w := serve(s, "GET", "/api/skills")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed to list skills", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestServer_handleGetSkillScore(t *testing.T) {
	s := newTestServer(t, &mockRegistry{
		scoreFunc: func(_ context.Context, name string) (*scoring.Report, error) {
			if name != "alpha" {
				return nil, errors.Wrap(ErrSkillNotFound, name)
			}
			return &scoring.Report{SkillName: "alpha", OverallScore: 7.5, Passed: true, Badge: scoring.BadgeReviewed}, nil
		},
	})

	w := serve(s, "GET", "/api/skills/alpha")
	require.Equal(t, http.StatusOK, w.Code)
	var report scoring.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 7.5, report.OverallScore)

	w = serve(s, "GET", "/api/skills/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "skill 'missing' not found")
}

func TestServer_handleGetSkillTokens(t *testing.T) {
	s := newTestServer(t, &mockRegistry{
		tokensFunc: func(_ context.Context, name string) (*tokens.Report, error) {
			return &tokens.Report{Name: name, Passed: true}, nil
		},
	})

	w := serve(s, "GET", "/api/skills/alpha/tokens")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"skill":"alpha"`)
}

func TestServer_handleBadge(t *testing.T) {
	s := newTestServer(t, &mockRegistry{
		scoreFunc: func(_ context.Context, name string) (*scoring.Report, error) {
			return &scoring.Report{SkillName: name, OverallScore: 8.2, Badge: scoring.BadgeVerified}, nil
		},
	})

	w := serve(s, "GET", "/badges/pdf-tools.svg")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Verified 8.2")
}

func TestServer_internalScoreError(t *testing.T) {
	s := newTestServer(t, &mockRegistry{
		scoreFunc: func(context.Context, string) (*scoring.Report, error) { return nil, errors.New("boom") },
	})
	assert.Equal(t, http.StatusInternalServerError, serve(s, "GET", "/api/skills/x").Code)
}

func TestServer_corsAndHealth(t *testing.T) {
	s := newTestServer(t, &mockRegistry{})

	w := serve(s, "GET", "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, "DELETE", "/api/skills").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, "POST", "/api/skills/pdf-tools").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(s, "PUT", "/api/skills/pdf-tools/tokens").Code)
}

func TestDiscoveryRegistry(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "alpha")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"),
		[]byte("---\nname: alpha\ndescription: Alpha skill.\n---\n\n# Alpha\n\nBody text.\n"), 0o644))

	discovery, err := skills.NewDiscovery(skills.WithSkillDirs(root))
	require.NoError(t, err)
	s := newTestServer(t, &DiscoveryRegistry{Discovery: discovery, Threshold: scoring.DefaultThreshold})

	var idx index.Index
	require.NoError(t, json.Unmarshal(serve(s, "GET", "/api/skills").Body.Bytes(), &idx))
	require.Equal(t, 1, idx.Count)
	assert.Equal(t, "alpha", idx.Skills[0].Name)
	assert.NotEqual(t, scoring.BadgeVerified, idx.Skills[0].Badge)

	var report scoring.Report
	w := serve(s, "GET", "/api/skills/alpha")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "alpha", report.SkillName)
	assert.Equal(t, scoring.DefaultThreshold, report.Threshold)
	assert.False(t, report.Passed)

	var tok tokens.Report
	w = serve(s, "GET", "/api/skills/alpha/tokens")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	assert.Equal(t, "alpha", tok.Name)
	assert.True(t, tok.SkillFound)

	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/api/skills/nope").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, "GET", "/badges/nope.svg").Code)
}
