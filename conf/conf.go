package conf

const Version = "0.4.0"

const (
	CONTENT_TYPE_JSON         = "application/json"
	CONTENT_TYPE_EVENT_STREAM = "text/event-stream"
)

// UserAgent 返回 SDK 发出请求时使用的 User-Agent。
func UserAgent() string {
	return "koyeb-sandbox-go/" + Version
}
