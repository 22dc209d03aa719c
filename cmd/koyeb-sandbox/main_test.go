package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyeb/sandbox-go/internal/sessionstore"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "koyeb-sandbox-cli")
	if err != nil {
		panic(err)
	}
	configFile := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configFile, nil, 0600); err != nil {
		panic(err)
	}
	os.Setenv("KOYEB_CONFIG_FILE", configFile)
	os.Unsetenv("KOYEB_API_TOKEN")
	os.Unsetenv("KOYEB_API_HOST")
	os.Unsetenv("KOYEB_DEBUG")
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestParseSpec(t *testing.T) {
	spec, err := parseSpec([]byte(`
name: dev box
image: python:3.12
instance_type: small
region: fra
exposed_port_protocol: http2
env:
  FOO: bar
wait_ready: false
timeout: 2m
idle_timeout: "0"
enable_tcp_proxy: true
delete_after_delay: 1d
delete_after_inactivity_delay: 30m
experimental_light_sleep: true
`))
	require.NoError(t, err)

	params, err := spec.params()
	require.NoError(t, err)
	assert.Equal(t, "dev box", params.Name)
	assert.Equal(t, "python:3.12", params.Image)
	assert.Equal(t, "small", params.InstanceType)
	assert.Equal(t, "fra", params.Region)
	assert.Equal(t, "http2", params.ExposedPortProtocol)
	assert.Equal(t, map[string]string{"FOO": "bar"}, params.Env)
	require.NotNil(t, params.WaitReady)
	assert.False(t, *params.WaitReady)
	assert.Equal(t, 2*time.Minute, params.Timeout)
	require.NotNil(t, params.IdleTimeout)
	assert.Equal(t, time.Duration(0), *params.IdleTimeout)
	assert.True(t, params.EnableTCPProxy)
	assert.Equal(t, "1d", params.DeleteAfterDelay.String())
	assert.Equal(t, "30m", params.DeleteAfterInactivityDelay.String())
	assert.True(t, params.ExperimentalLightSleep)
}

func TestParseSpecErrors(t *testing.T) {
	_, err := parseSpec([]byte("name: [unterminated"))
	assert.Error(t, err)

	spec, err := parseSpec([]byte("timeout: soon"))
	require.NoError(t, err)
	_, err = spec.params()
	assert.ErrorContains(t, err, "timeout")
}

func TestCreateParamsFlagsOverrideSpec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-spec\nregion: fra\nenv:\n  A: spec\n  B: spec\n"), 0600))

	cmd := &createCommand{
		Spec:        path,
		Name:        "from-flag",
		Env:         map[string]string{"B": "flag"},
		Timeout:     90 * time.Second,
		IdleTimeout: "5m",
		NoWait:      true,
		DeleteAfter: "1h",
	}
	params, err := cmd.params()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", params.Name)
	assert.Equal(t, "fra", params.Region)
	assert.Equal(t, map[string]string{"A": "spec", "B": "flag"}, params.Env)
	assert.Equal(t, 90*time.Second, params.Timeout)
	require.NotNil(t, params.IdleTimeout)
	assert.Equal(t, 5*time.Minute, *params.IdleTimeout)
	require.NotNil(t, params.WaitReady)
	assert.False(t, *params.WaitReady)
	assert.Equal(t, "1h", params.DeleteAfterDelay.String())

	cmd = &createCommand{Spec: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err = cmd.params()
	assert.Error(t, err)
}

type fakeControlPlane struct {
	*httptest.Server

	mu          sync.Mutex
	deletedApps []string
}

func newFakeControlPlane(t *testing.T) *fakeControlPlane {
	f := &fakeControlPlane{}
	r := mux.NewRouter()
	r.HandleFunc("/v1/services/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := mux.Vars(req)["id"]
		if id != "svc-9" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"code":"not_found","message":"service not found"}`))
			return
		}
		assert.Equal(t, "Bearer token-1", req.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"service": map[string]any{
			"id": "svc-9", "app_id": "app-9", "name": "dev", "latest_deployment_id": "dep-9",
		}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/deployments/dep-9", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"deployment": map[string]any{
			"id": "dep-9",
			"definition": map[string]any{
				"env": []map[string]string{{"key": "SANDBOX_SECRET", "value": "secret-9"}},
			},
		}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/apps/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.deletedApps = append(f.deletedApps, mux.Vars(req)["id"])
		f.mu.Unlock()
		writeJSON(w, map[string]any{})
	}).Methods(http.MethodDelete)
	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestDeleteResolvesLocalName(t *testing.T) {
	server := newFakeControlPlane(t)
	storePath := filepath.Join(t.TempDir(), "sandboxes.json")
	store, err := sessionstore.New(storePath)
	require.NoError(t, err)
	require.NoError(t, store.Put(sessionstore.Record{Name: "dev", ID: "svc-9", AppID: "app-9", CreatedAt: time.Now()}))

	a := &app{ctx: context.Background()}
	_, err = newParser(a).ParseArgs([]string{
		"--api-token", "token-1",
		"--endpoint", server.URL,
		"--store", storePath,
		"delete", "dev",
	})
	require.NoError(t, err)

	server.mu.Lock()
	assert.Equal(t, []string{"app-9"}, server.deletedApps)
	server.mu.Unlock()

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteUnknownSandboxOnlyForgetsRecord(t *testing.T) {
	server := newFakeControlPlane(t)
	storePath := filepath.Join(t.TempDir(), "sandboxes.json")
	store, err := sessionstore.New(storePath)
	require.NoError(t, err)
	require.NoError(t, store.Put(sessionstore.Record{Name: "gone", ID: "svc-gone", CreatedAt: time.Now()}))

	a := &app{ctx: context.Background()}
	_, err = newParser(a).ParseArgs([]string{
		"--api-token", "token-1",
		"--endpoint", server.URL,
		"--store", storePath,
		"delete", "gone",
	})
	require.NoError(t, err)

	server.mu.Lock()
	assert.Empty(t, server.deletedApps)
	server.mu.Unlock()

	records, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMissingAPIToken(t *testing.T) {
	a := &app{ctx: context.Background()}
	_, err := newParser(a).ParseArgs([]string{"--store", filepath.Join(t.TempDir(), "s.json"), "get", "svc-1"})
	assert.ErrorContains(t, err, "API token")
}
