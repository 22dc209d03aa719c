package env

import (
	"os"
	"strings"
)

const (
	environmentVariableNameKoyebAPIToken   = "KOYEB_API_TOKEN"
	environmentVariableNameKoyebAPIHost    = "KOYEB_API_HOST"
	environmentVariableNameKoyebDebug      = "KOYEB_DEBUG"
	environmentVariableNameKoyebConfigFile = "KOYEB_CONFIG_FILE"
	environmentVariableNameKoyebProfile    = "KOYEB_PROFILE"
)

func APITokenFromEnvironment() string {
	return strings.TrimSpace(os.Getenv(environmentVariableNameKoyebAPIToken))
}

func APIHostFromEnvironment() string {
	return strings.TrimRight(strings.TrimSpace(os.Getenv(environmentVariableNameKoyebAPIHost)), "/")
}

func ConfigFileFromEnvironment() string {
	return os.Getenv(environmentVariableNameKoyebConfigFile)
}

func ProfileFromEnvironment() string {
	return os.Getenv(environmentVariableNameKoyebProfile)
}

// DebugFromEnvironment 返回 (是否开启调试, 是否设置了该环境变量)。
func DebugFromEnvironment() (bool, bool) {
	value := strings.ToLower(os.Getenv(environmentVariableNameKoyebDebug))
	if value == "" {
		return false, false
	}
	return value == "true" || value == "yes" || value == "y" || value == "1", true
}
