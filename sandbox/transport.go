package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koyeb/sandbox-go/internal/clientv2"
)

// Fetch 向沙箱执行器发出请求并返回原始响应，调用方负责关闭响应体。
// body 不为 nil 时以 JSON 编码发送。非 2xx 响应不会被视为错误。
func (s *Sandbox) Fetch(ctx context.Context, method, path string, body any) (*http.Response, error) {
	base, err := s.URL(ctx)
	if err != nil {
		return nil, err
	}

	params := clientv2.RequestParams{
		Context: ctx,
		Method:  method,
		Url:     base + path,
		Header:  http.Header{},
	}
	if body != nil {
		getBody, err := clientv2.GetJsonRequestBody(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		params.GetBody = getBody
	}

	return clientv2.Do(s.executor, params)
}

// Request 向沙箱执行器发出请求并解析响应。
//
// JSON 响应解码到 out，其他响应在 out 为 *string 时以文本赋值。
// 非 2xx 响应返回 *RequestError，其中包含原始响应体和解析结果。
func (s *Sandbox) Request(ctx context.Context, method, path string, body, out any) error {
	resp, err := s.Fetch(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response of %s: %w", path, err)
	}

	isJSON := isJSONContentType(resp.Header.Get("Content-Type"))
	if !isHTTPSuccess(resp.StatusCode) {
		return newRequestError(resp, data, isJSON)
	}

	switch v := out.(type) {
	case nil:
		return nil
	case *string:
		*v = string(data)
		return nil
	}
	if !isJSON {
		return fmt.Errorf("unexpected response of %s: content type %q", path, resp.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response of %s: %w", path, err)
	}
	return nil
}
