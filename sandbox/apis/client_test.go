package apis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, register func(r *mux.Router)) *Client {
	t.Helper()
	r := mux.NewRouter()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "token-123")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGetApp(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/v1/apps/{id}", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "Bearer token-123", req.Header.Get("Authorization"))
			assert.NotEmpty(t, req.Header.Get("X-Request-Id"))
			writeJSON(w, http.StatusOK, map[string]any{
				"app": App{ID: mux.Vars(req)["id"], Domains: []Domain{{Name: "x.koyeb.app"}}},
			})
		}).Methods(http.MethodGet)
	})

	app, err := c.GetApp(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", app.ID)
	require.Len(t, app.Domains, 1)
	assert.Equal(t, "x.koyeb.app", app.Domains[0].Name)
}

func TestGetAppEmptyID(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "t")
	_, err := c.GetApp(context.Background(), "")
	require.Error(t, err)
}

func TestCreateServiceDryRun(t *testing.T) {
	var mu sync.Mutex
	var dryRuns []string
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/v1/services", func(w http.ResponseWriter, req *http.Request) {
			mu.Lock()
			dryRuns = append(dryRuns, req.URL.Query().Get("dry_run"))
			mu.Unlock()
			var body CreateService
			assert.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "app-1", body.AppID)
			assert.Equal(t, "SANDBOX", body.Definition.Type)
			writeJSON(w, http.StatusOK, map[string]any{"service": Service{ID: "svc-1", AppID: body.AppID}})
		}).Methods(http.MethodPost)
	})

	body := CreateService{AppID: "app-1", Definition: DeploymentDefinition{Type: "SANDBOX"}}
	_, err := c.CreateService(context.Background(), body, true)
	require.NoError(t, err)
	svc, err := c.CreateService(context.Background(), body, false)
	require.NoError(t, err)
	assert.Equal(t, "svc-1", svc.ID)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"true", ""}, dryRuns)
}

func TestListServicesQuery(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/v1/services", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "app-1", req.URL.Query().Get("app_id"))
			assert.Equal(t, "10", req.URL.Query().Get("limit"))
			assert.False(t, req.URL.Query().Has("name"))
			writeJSON(w, http.StatusOK, map[string]any{"services": []Service{{ID: "a"}, {ID: "b"}}})
		}).Methods(http.MethodGet)
	})

	appID, limit := "app-1", 10
	services, err := c.ListServices(context.Background(), &ListServicesParams{AppID: &appID, Limit: &limit})
	require.NoError(t, err)
	assert.Len(t, services, 2)
}

func TestUpdateServiceAndDeployment(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/v1/services/{id}", func(w http.ResponseWriter, req *http.Request) {
			var body UpdateService
			if assert.NoError(t, json.NewDecoder(req.Body).Decode(&body)) && assert.NotNil(t, body.LifeCycle) {
				assert.EqualValues(t, 600, *body.LifeCycle.DeleteAfterSleep)
			}
			writeJSON(w, http.StatusOK, map[string]any{"service": Service{ID: mux.Vars(req)["id"], LifeCycle: body.LifeCycle}})
		}).Methods(http.MethodPatch)
		r.HandleFunc("/v1/deployments/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"deployment": Deployment{
				ID: mux.Vars(req)["id"],
				Definition: &DeploymentDefinition{
					Env: []DeploymentEnv{{Key: "SANDBOX_SECRET", Value: "s3cr3t"}},
				},
				Metadata: &DeploymentMetadata{
					ProxyPorts: []DeploymentProxyPortMetadata{{Host: "tcp.koyeb.app", PublicPort: 21000, Port: 3031}},
				},
			}})
		}).Methods(http.MethodGet)
	})

	sleep := int64(600)
	svc, err := c.UpdateService(context.Background(), "svc-1", UpdateService{LifeCycle: &ServiceLifeCycle{DeleteAfterSleep: &sleep}})
	require.NoError(t, err)
	assert.Equal(t, "svc-1", svc.ID)

	dep, err := c.GetDeployment(context.Background(), "dep-1")
	require.NoError(t, err)
	secret, ok := dep.Definition.EnvValue("SANDBOX_SECRET")
	assert.True(t, ok)
	assert.Equal(t, "s3cr3t", secret)
	assert.EqualValues(t, 21000, dep.Metadata.ProxyPorts[0].PublicPort)
}

func TestAPIError(t *testing.T) {
	c := newTestServer(t, func(r *mux.Router) {
		r.HandleFunc("/v1/apps/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "not_found", "message": "App not found"})
		}).Methods(http.MethodDelete)
		r.HandleFunc("/v1/services/{id}", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream unavailable"))
		}).Methods(http.MethodDelete)
	})

	err := c.DeleteApp(context.Background(), "missing")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "not_found", apiErr.Code)
	assert.Equal(t, "App not found", apiErr.Message)
	assert.True(t, IsNotFound(err))

	err = c.DeleteService(context.Background(), "svc")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", string(apiErr.Body))
	assert.Empty(t, apiErr.Message)
	assert.False(t, IsNotFound(err))
}
