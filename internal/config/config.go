package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8000"`
	StaticDir  string `envconfig:"STATIC_DIR" default:"./static"`
	DBPath     string `envconfig:"DB_PATH" default:"./data/sshterm.db"`
	LogPath    string `envconfig:"LOG_PATH" default:""`

	// Access control. All of it is opt-in: with no admin password there is
	// no login and no token check, and with no allowlist every source
	// address is accepted.
	AdminPassword  string `envconfig:"ADMIN_PASSWORD" default:""`
	SecretKey      string `envconfig:"SECRET_KEY" default:""`
	SessionTimeout int    `envconfig:"SESSION_TIMEOUT" default:"30"` // minutes
	AllowedIPs     string `envconfig:"ALLOWED_IPS" default:""`

	// Terminal session settings
	MaxSessions  int    `envconfig:"MAX_SESSIONS" default:"0"` // 0 = unlimited
	CommandsFile string `envconfig:"COMMANDS_FILE" default:""`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("SSH_TERMINAL", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if Cfg.SessionTimeout <= 0 {
		Cfg.SessionTimeout = 30
	}
	if Cfg.SecretKey == "" {
		Cfg.SecretKey = randomSecret()
		log.Printf("SSH_TERMINAL_SECRET_KEY not set, generated a random one; sessions will not survive a restart")
	}
}

// AuthEnabled reports whether an admin password is configured. Everything
// token-related (login, session cookie checks, the idle watchdog) hangs off
// this single switch.
func AuthEnabled() bool {
	return Cfg.AdminPassword != ""
}

// SessionMaxAge returns the configured session timeout as a duration.
func SessionMaxAge() time.Duration {
	return time.Duration(Cfg.SessionTimeout) * time.Minute
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("failed to generate secret key: %v", err)
	}
	return hex.EncodeToString(buf)
}
