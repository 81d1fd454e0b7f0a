package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rbp/auth/internal/flagx"
	"github.com/rbp/auth/internal/timex"
)

// jsonConfig is the file-facing shape of Config. Interval fields use
// timex.Duration so both "168h" and integer nanoseconds parse.
type jsonConfig struct {
	DatabaseDriver         string         `json:"database_driver"`
	DatabaseDSN            string         `json:"database_dsn"`
	RegistrationExpiration timex.Duration `json:"registration_expiration"`
	FailedAuthLimit        int            `json:"failed_auth_limit"`
	LoginSuspendedPeriod   timex.Duration `json:"login_suspended_period"`
	SaltLength             int            `json:"salt_length"`
	ConfirmationFrom       string         `json:"confirmation_from"`
	ConfirmationFromAddr   string         `json:"confirmation_from_addr"`
	ConfirmationSubject    string         `json:"confirmation_subject"`
	ConfirmationTemplate   string         `json:"confirmation_template"`
	SMTPAddr               string         `json:"smtp_addr"`
}

// parseJSON overlays values from the JSON file named by -c/-config, if any.
// Only fields present in the file override the current values. An unreadable
// or malformed file panics: a config file that was explicitly requested must
// not be silently ignored.
func parseJSON(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &jsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.DatabaseDriver != "" {
		config.DatabaseDriver = c.DatabaseDriver
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.RegistrationExpiration.Duration != 0 {
		config.RegistrationExpiration = time.Duration(c.RegistrationExpiration.Duration)
	}
	if c.FailedAuthLimit != 0 {
		config.FailedAuthLimit = c.FailedAuthLimit
	}
	if c.LoginSuspendedPeriod.Duration != 0 {
		config.LoginSuspendedPeriod = time.Duration(c.LoginSuspendedPeriod.Duration)
	}
	if c.SaltLength != 0 {
		config.SaltLength = c.SaltLength
	}
	if c.ConfirmationFrom != "" {
		config.ConfirmationFrom = c.ConfirmationFrom
	}
	if c.ConfirmationFromAddr != "" {
		config.ConfirmationFromAddr = c.ConfirmationFromAddr
	}
	if c.ConfirmationSubject != "" {
		config.ConfirmationSubject = c.ConfirmationSubject
	}
	if c.ConfirmationTemplate != "" {
		config.ConfirmationTemplate = c.ConfirmationTemplate
	}
	if c.SMTPAddr != "" {
		config.SMTPAddr = c.SMTPAddr
	}
}
