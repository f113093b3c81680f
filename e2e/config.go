package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_READ_TIMEOUT bounds every single frame read in the scenarios
	ReadTimeout time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"3s"`
	// E2E_DEBUG_JSON allows dumping every frame as it is read
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_SEND_QUEUE_SIZE sizes the per-connection outbound queue
	SendQueueSize int `envconfig:"E2E_SEND_QUEUE_SIZE" default:"64"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
