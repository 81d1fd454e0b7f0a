package gateway

// The two database drivers the system ships with: postgres through the pgx
// stdlib adapter (dollar placeholders) and sqlite (positional placeholders).
import (
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)
