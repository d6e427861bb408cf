package constants

// Log file names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.osdep/logs/osdep.log
	CLILogFileName = "osdep.log"
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global and project configuration files.
	// This file is located in the osdep home directory.
	GlobalConfigName = "config.yaml"
)

// Directory names.
const (
	// OsdepHome is the hidden directory name where osdep stores its data.
	OsdepHome = ".osdep"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// LocksDir is the directory name where shared mutex lock files are stored.
	LocksDir = "locks"
)

// Log rotation settings for the CLI log file.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 3
	LogMaxAgeDays = 7
	LogCompress   = true
)
