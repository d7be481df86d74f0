package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/glukw/sshterm/internal/config"
)

var DB *gorm.DB

func Init() error {
	dbPath := config.Cfg.DBPath
	if dbDir := filepath.Dir(dbPath); dbDir != "" {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}

	if err := DB.AutoMigrate(&Command{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	if err := seedCommands(config.Cfg.CommandsFile); err != nil {
		return fmt.Errorf("seed commands: %w", err)
	}

	return nil
}

func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func Ping() error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// seedCommands loads the YAML command list into an empty table. Existing
// rows win: the file is only read when the table holds no commands.
func seedCommands(path string) error {
	if path == "" {
		return nil
	}
	var count int64
	if err := DB.Model(&Command{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var entries []struct {
		Label    string `yaml:"label"`
		Cmd      string `yaml:"cmd"`
		Category string `yaml:"category"`
	}
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	seeded := 0
	for _, e := range entries {
		if e.Label == "" || e.Cmd == "" {
			log.Printf("WARNING: skipping seed command with empty label or cmd in %s", path)
			continue
		}
		cmd := Command{ID: NewCommandID(), Label: e.Label, Cmd: e.Cmd, Category: e.Category}
		if cmd.Category == "" {
			cmd.Category = "General"
		}
		if err := DB.Create(&cmd).Error; err != nil {
			return fmt.Errorf("seed command %q: %w", e.Label, err)
		}
		seeded++
	}
	if seeded > 0 {
		log.Printf("Seeded %d commands from %s", seeded, path)
	}
	return nil
}

// NewCommandID returns a short command identifier, the first 8 characters
// of a UUID.
func NewCommandID() string {
	return uuid.NewString()[:8]
}

// Command helpers

func ListCommands() ([]Command, error) {
	cmds := []Command{}
	if err := DB.Order("created_at, id").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}

func CreateCommand(cmd *Command) error {
	return DB.Create(cmd).Error
}

func DeleteCommand(id string) error {
	res := DB.Where("id = ?", id).Delete(&Command{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
