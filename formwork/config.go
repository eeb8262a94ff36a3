package formwork

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config containing all the configuration values for a service.
type Config struct {
	// Title and Description are shown above the form.
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Port        uint16 `json:"port" yaml:"port"`
	CookieName  string `json:"cookiename" yaml:"cookiename"`
	DBPath      string `json:"dbpath" yaml:"dbpath"`
	// SessionHours is the lifetime of a session in hours.  Zero sessions
	// never expire.
	SessionHours int `json:"sessionhours" yaml:"sessionhours"`
	// MaxUploadMemory is the number of bytes of a multipart body kept in
	// memory; the rest is stored in temporary files.
	MaxUploadMemory int64 `json:"maxuploadmemory" yaml:"maxuploadmemory"`
	QueueLength     int   `json:"queuelength" yaml:"queuelength"`
	// SessionBackend selects where sessions are stored: "sqlite" (the
	// service database) or "bolt" (a bbolt file at BoltPath).
	SessionBackend string `json:"sessionbackend" yaml:"sessionbackend"`
	BoltPath       string `json:"boltpath" yaml:"boltpath"`
}

// Session backends.
const (
	SQLiteSessions = "sqlite"
	BoltSessions   = "bolt"
)

// ReadConfig reads the configuration from a JSON or YAML (.yml, .yaml) file and
// fills in defaults for unset values.
func ReadConfig(filename string) (*Config, error) {
	confData, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := new(Config)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(confData, config)
	default:
		err = json.Unmarshal(confData, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", filename, err)
	}
	config.setDefaults(log.Default())
	return config, nil
}

// setDefaults sets defaults for any unset values and logs each one.
func (config *Config) setDefaults(logger *log.Logger) {
	if config.Title == "" {
		config.Title = "Forms"
	}
	if config.CookieName == "" {
		config.CookieName = "formwork-session"
		logger.Printf("[config] Setting default cookie name: %s", config.CookieName)
	}
	if config.Port == 0 {
		config.Port = 3000
		logger.Printf("[config] Setting default port: %d", config.Port)
	}
	if config.DBPath == "" {
		config.DBPath = "./formwork.db"
		logger.Printf("[config] Setting default dbpath: %s", config.DBPath)
	}
	if config.MaxUploadMemory <= 0 {
		config.MaxUploadMemory = 10 << 20
		logger.Printf("[config] Setting default upload memory: %d", config.MaxUploadMemory)
	}
	if config.QueueLength <= 0 {
		config.QueueLength = 100
		logger.Printf("[config] Setting default queue length: %d", config.QueueLength)
	}
	if config.SessionBackend == "" {
		config.SessionBackend = SQLiteSessions
	}
	if config.SessionBackend == BoltSessions && config.BoltPath == "" {
		config.BoltPath = "./formwork-sessions.db"
		logger.Printf("[config] Setting default boltpath: %s", config.BoltPath)
	}
}

// validate checks values that have no default.
func (config *Config) validate() error {
	switch config.SessionBackend {
	case SQLiteSessions, BoltSessions:
		return nil
	}
	return fmt.Errorf("unknown session backend %q", config.SessionBackend)
}
