package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for the config directory and the log file name
	DefaultAppName        = "sebverificator"
	DefaultAppCMDShortCut = "sebverify"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultCacheDir       = filepath.Join(DefaultConfigPath, ".cache")
	DefaultReferencesDir  = filepath.Join(DefaultConfigPath, "references")
	DefaultCatalogPath    = filepath.Join(DefaultConfigPath, "catalog.db")
	DefaultLogFile        = filepath.Join(DefaultConfigPath, "logs", DefaultAppName+".log")
	DefaultGlobalConfig   = filepath.Join(DefaultConfigPath, "config.yaml")

	// Product layout of a Safe Exam Browser installation
	DefaultProductName    = "Safe Exam Browser"
	DefaultMainExecutable = filepath.Join("Application", "SafeExamBrowser.exe")

	// File extensions
	ReferenceFileExtension     = ".sebref"
	ConfigurationFileExtension = ".seb"

	DefaultSignatureExtensions = []string{".exe", ".dll"}
	DefaultLogLevel            = "info"
	DefaultDebounceMillis      = 750
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using temp dir: %v", err)
			return os.TempDir()
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
