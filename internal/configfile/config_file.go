package configfile

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/koyeb/sandbox-go/internal/env"
)

type profileConfig struct {
	APIToken string `toml:"api_token"`
	APIHost  string `toml:"api_host"`
	Debug    *bool  `toml:"debug"`
}

var (
	profileConfigs      map[string]*profileConfig
	profileConfigsError error
	profileConfigsOnce  sync.Once
)

// APITokenFromConfigFile 返回当前 profile 中的 api_token，配置文件不存在时返回空字符串。
func APITokenFromConfigFile() (string, error) {
	profile, err := getProfile()
	if err != nil || profile == nil {
		return "", err
	}
	return profile.APIToken, nil
}

func APIHostFromConfigFile() (string, error) {
	profile, err := getProfile()
	if err != nil || profile == nil {
		return "", err
	}
	return profile.APIHost, nil
}

// DebugFromConfigFile 返回 (是否开启调试, 是否配置了 debug)。
func DebugFromConfigFile() (bool, bool, error) {
	profile, err := getProfile()
	if err != nil || profile == nil || profile.Debug == nil {
		return false, false, err
	}
	return *profile.Debug, true, nil
}

func getProfile() (*profileConfig, error) {
	if err := load(); err != nil {
		return nil, err
	}
	profileName := env.ProfileFromEnvironment()
	if profileName == "" {
		profileName = "default"
	}
	profile, ok := profileConfigs[profileName]
	if !ok || profile == nil {
		return nil, nil
	}
	return profile, nil
}

func load() error {
	profileConfigsOnce.Do(func() {
		profileConfigsError = _load()
	})
	return profileConfigsError
}

func _load() error {
	configFilePath := env.ConfigFileFromEnvironment()
	explicit := configFilePath != ""
	if !explicit {
		configFilePath = getDefaultConfigFilePath()
	}
	_, err := toml.DecodeFile(configFilePath, &profileConfigs)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		// 默认路径下没有配置文件是正常情况
		return nil
	}
	return err
}

// reset 清除已加载的配置，仅用于测试。
func reset() {
	profileConfigs = nil
	profileConfigsError = nil
	profileConfigsOnce = sync.Once{}
}

func getDefaultConfigFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return filepath.Join(homeDir, ".koyeb", "config.toml")
}
