package sandbox

import (
	"crypto/rand"
)

const (
	secretAlphabet = "-_0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	secretLength   = 32
)

// newSandboxSecret 生成沙箱执行器使用的随机凭证。
func newSandboxSecret() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	// 字母表恰好 64 个字符，取低 6 位即可均匀分布
	for i, b := range buf {
		buf[i] = secretAlphabet[b&63]
	}
	return string(buf), nil
}
