package clientv2

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebugInterceptorRedactsAuthorization(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewClient(&testClient{statusCode: http.StatusOK, header: http.Header{"Content-Type": {"application/json"}}},
		NewAuthInterceptor(AuthConfig{Token: "super-secret"}),
		NewDebugInterceptor(DebugConfig{PrintRequest: true, PrintResponse: true, Logger: zap.New(core)}),
	)

	getBody, err := GetJsonRequestBody(map[string]string{"cmd": "echo hi"})
	require.NoError(t, err)
	_, err = Do(c, RequestParams{
		Method:  RequestMethodPost,
		Url:     "https://sandbox.example.com/koyeb-sandbox/run",
		GetBody: getBody,
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	dump := entries[0].ContextMap()["dump"].(string)
	require.Contains(t, dump, "Authorization: ****")
	require.NotContains(t, dump, "super-secret")
	require.Contains(t, dump, `{"cmd":"echo hi"}`)
	require.NotEmpty(t, entries[0].ContextMap()["request_id"])

	require.Len(t, logs.FilterMessage("response").All(), 1)
}

func TestDebugInterceptorKeepsRequestBody(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	var received string
	recorder := NewSimpleInterceptorWithPriority(InterceptorPriorityDebug+1, func(req *http.Request, handler Handler) (*http.Response, error) {
		b, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		received = string(b)
		return handler(req)
	})
	c := NewClient(&testClient{statusCode: http.StatusOK},
		NewDebugInterceptor(DebugConfig{PrintRequest: true, Logger: zap.New(core)}),
		recorder,
	)

	getBody, err := GetJsonRequestBody(map[string]int{"port": 8080})
	require.NoError(t, err)
	_, err = Do(c, RequestParams{Method: RequestMethodPost, Url: "https://sandbox.example.com/bind_port", GetBody: getBody})
	require.NoError(t, err)
	require.Equal(t, `{"port":8080}`, received)
}

func TestDebugInterceptorSkipsEventStreamBody(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stream := &streamClient{body: "event: output\ndata: {}\n\n"}
	c := NewClient(stream, NewDebugInterceptor(DebugConfig{PrintResponse: true, Logger: zap.New(core)}))

	resp, err := Do(c, RequestParams{Method: RequestMethodPost, Url: "https://sandbox.example.com/run_streaming"})
	require.NoError(t, err)

	dump := logs.FilterMessage("response").All()[0].ContextMap()["dump"].(string)
	require.NotContains(t, dump, "event: output")

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, stream.body, string(b))
}

type streamClient struct {
	body string
}

func (s *streamClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		Request:    req,
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(s.body)),
	}, nil
}
