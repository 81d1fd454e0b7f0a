package config

import (
	"flag"
	"os"
	"time"

	"github.com/rbp/auth/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   database DSN
//	-b string   database/sql driver name ("pgx" or "sqlite")
//	-e int      registration expiration, hours
//	-l int      failed authentication limit
//	-s int      login suspension period, minutes
//	-n int      salt length of stored hashes
//	-m string   SMTP server address (host:port)
//	-t string   confirmation mail template path
//
// Arguments are first filtered through flagx.FilterArgs so flags owned by
// other components (like -c/-config) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-e", "-l", "-s", "-n", "-m", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "b", config.DatabaseDriver, "database driver name")

	expirationHours := fs.Int("e", int(config.RegistrationExpiration.Hours()), "registration expiration (in hours)")
	fs.IntVar(&config.FailedAuthLimit, "l", config.FailedAuthLimit, "failed authentication limit")
	suspensionMinutes := fs.Int("s", int(config.LoginSuspendedPeriod.Minutes()), "login suspension period (in minutes)")
	fs.IntVar(&config.SaltLength, "n", config.SaltLength, "salt length")

	fs.StringVar(&config.SMTPAddr, "m", config.SMTPAddr, "SMTP server address")
	fs.StringVar(&config.ConfirmationTemplate, "t", config.ConfirmationTemplate, "confirmation mail template path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.RegistrationExpiration = time.Duration(*expirationHours) * time.Hour
	config.LoginSuspendedPeriod = time.Duration(*suspensionMinutes) * time.Minute
}
