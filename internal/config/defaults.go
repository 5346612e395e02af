package config

const (
	defaultStagingDir        = "~/.local/share/rosterforge/staging"
	defaultOutputDir         = "~/.local/share/rosterforge/output"
	defaultLogDir            = "~/.local/share/rosterforge/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultWorkers           = 4
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Workflow: Workflow{
			Workers:           defaultWorkers,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Logging: Logging{
			LogFormat: defaultLogFormat,
			LogLevel:  defaultLogLevel,
		},
	}
}
