package clientv2

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthInterceptor(t *testing.T) {
	signed := false
	interceptor := NewAuthInterceptor(AuthConfig{
		Token: "secret-token",
		AfterSign: func(req *http.Request) {
			signed = true
		},
	})
	core := &testClient{statusCode: http.StatusOK}
	c := NewClient(core, interceptor)
	resp, err := Do(c, RequestParams{
		Method: RequestMethodGet,
		Url:    "https://sandbox.example.com/koyeb-sandbox/list_processes",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, signed)
	require.Equal(t, "Bearer secret-token", core.lastReq.Header.Get("Authorization"))
}

func TestAuthInterceptorWithoutToken(t *testing.T) {
	core := &testClient{statusCode: http.StatusOK}
	c := NewClient(core, NewAuthInterceptor(AuthConfig{}))
	_, err := Do(c, RequestParams{Url: "https://sandbox.example.com/health"})
	require.NoError(t, err)
	require.Empty(t, core.lastReq.Header.Get("Authorization"))
}
