package state

// GlobalOptions contains global config values that apply for all stylemap sub-commands.
type GlobalOptions struct {
	ConfigFilePath string
	EnvFile        string
	NoColor        bool
	Quiet          bool
	Verbose        bool
	LogOutput      string
	LogFormat      string
	LogLevel       string
}

// GetDefaultGlobalOptions returns the default global flags.
func GetDefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		EnvFile:   ".env",
		LogOutput: "stderr",
		LogLevel:  "info",
	}
}

func consolidateGlobalFlags(defaultFlags GlobalOptions, env map[string]string) GlobalOptions {
	result := defaultFlags

	if val, ok := env["STYLEMAP_CONFIG"]; ok {
		result.ConfigFilePath = val
	}
	if val, ok := env["STYLEMAP_ENV_FILE"]; ok {
		result.EnvFile = val
	}
	if val, ok := env["STYLEMAP_LOG_OUTPUT"]; ok {
		result.LogOutput = val
	}
	if val, ok := env["STYLEMAP_LOG_FORMAT"]; ok {
		result.LogFormat = val
	}
	if val, ok := env["STYLEMAP_LOG_LEVEL"]; ok {
		result.LogLevel = val
	}
	if env["STYLEMAP_NO_COLOR"] != "" {
		result.NoColor = true
	}
	// Support https://no-color.org/, even an empty value should disable the
	// color output.
	if _, ok := env["NO_COLOR"]; ok {
		result.NoColor = true
	}
	return result
}
