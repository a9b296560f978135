package app

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/adanyl0v/go-taskdesk/internal/config"
)

// MustReadEnv reads the configuration from the environment, or from
// the file named by CONFIG_PATH with the environment taking precedence.
func MustReadEnv() {
	var reader config.Reader = config.NewEnvReader()
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		reader = config.NewFileReader(path)
	}

	cfg, err := reader.Read()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to read env")
		panic(err)
	}
	globalLogger.Info().
		Str("env", cfg.Env).
		Msg("read env")

	config.SetGlobal(cfg)
}
