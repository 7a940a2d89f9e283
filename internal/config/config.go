package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	HandlerConsole = "console"
	HandlerFile    = "file"
)

type Config struct {
	App         AppConfig    `mapstructure:"app"`
	DefaultPath PathConfig   `mapstructure:"default_path"`
	MySQL       MySQLConfig  `mapstructure:"mysql"`
	Backup      BackupConfig `mapstructure:"backup"`
}

type AppConfig struct {
	Name       string `mapstructure:"name"`
	LogLevel   int    `mapstructure:"log_level"`
	LogHandler string `mapstructure:"log_handler"`
	LogFile    string `mapstructure:"log_file"`
	Schedule   string `mapstructure:"schedule"`
}

type PathConfig struct {
	// BackupRoot keeps the trailing slash the config file documents.
	BackupRoot string `mapstructure:"bk_root"`
}

type MySQLConfig struct {
	User     string `mapstructure:"mysql_user"`
	Password string `mapstructure:"mysql_password"`
	Database string `mapstructure:"mysql_db"`
	Host     string `mapstructure:"mysql_host"`
	Port     int    `mapstructure:"mysql_port"`
}

type BackupConfig struct {
	PreservedDays int            `mapstructure:"preserved_days"`
	KeepOriginal  bool           `mapstructure:"keep_original"`
	DumpCommand   string         `mapstructure:"dump_command"`
	ExtraArgs     []string       `mapstructure:"extra_args"`
	LockFile      string         `mapstructure:"lock_file"`
	UploadTargets []UploadTarget `mapstructure:"upload_targets"`
}

type UploadTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local mirror
	Path string `mapstructure:"path"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`

	// Telegram
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("app.name", "mysqlbackup")
	v.SetDefault("app.log_level", 20)
	v.SetDefault("app.log_handler", HandlerConsole)
	v.SetDefault("app.log_file", "mariadb_backup.log")
	v.SetDefault("mysql.mysql_host", "localhost")
	v.SetDefault("mysql.mysql_port", 3306)
	v.SetDefault("backup.preserved_days", 3)
	v.SetDefault("backup.keep_original", false)
	v.SetDefault("backup.dump_command", "mysqldump")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DefaultPath.BackupRoot == "" {
		return fmt.Errorf("default_path.BK_ROOT is required")
	}
	if c.MySQL.User == "" {
		return fmt.Errorf("mysql.MYSQL_USER is required")
	}
	if c.MySQL.Port <= 0 || c.MySQL.Port > 65535 {
		return fmt.Errorf("mysql.MYSQL_PORT must be between 1 and 65535")
	}
	if c.Backup.PreservedDays < 1 {
		return fmt.Errorf("backup.preserved_days must be at least 1")
	}
	if c.Backup.DumpCommand == "" {
		return fmt.Errorf("backup.dump_command is required")
	}
	if err := ValidateLogLevel(c.App.LogLevel); err != nil {
		return err
	}
	if err := ValidateHandler(c.App.LogHandler); err != nil {
		return err
	}

	for i, target := range c.Backup.UploadTargets {
		if target.Type == "" {
			return fmt.Errorf("backup.upload_targets[%d]: type is required", i)
		}
	}

	return nil
}

func ValidateLogLevel(level int) error {
	switch level {
	case 10, 20, 30, 40, 50:
		return nil
	}
	return fmt.Errorf("log level must be one of 10, 20, 30, 40, 50, got %d", level)
}

func ValidateHandler(handler string) error {
	switch handler {
	case HandlerConsole, HandlerFile:
		return nil
	}
	return fmt.Errorf("log handler must be %q or %q, got %q", HandlerConsole, HandlerFile, handler)
}

// LockPath is where the single-run lock lives; by default inside the backup
// root so that every process sharing a root shares the lock.
func (c *Config) LockPath() string {
	if c.Backup.LockFile != "" {
		return c.Backup.LockFile
	}
	return filepath.Join(c.DefaultPath.BackupRoot, ".mysqlbackup.lock")
}

func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	var enabled []UploadTarget
	for _, target := range c.Backup.UploadTargets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
