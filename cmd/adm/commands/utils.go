package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"satprep/internal/config"
	"satprep/internal/observability"
	"satprep/internal/serviceinterfaces"
	contextutils "satprep/internal/utils"

	"github.com/spf13/cobra"
)

// Env carries what every admin command needs. Services connects lazily so commands that never
// touch the database work without one.
type Env struct {
	Config   *config.Config
	Logger   *observability.Logger
	Services func(ctx context.Context) (serviceinterfaces.LearningPathService, *sql.DB, error)
}

func (e *Env) learningPath(ctx context.Context) (serviceinterfaces.LearningPathService, error) {
	if e.Services == nil {
		return nil, contextutils.WrapError(contextutils.ErrDatabaseConnection, "database is not configured")
	}
	svc, _, err := e.Services(ctx)
	return svc, err
}

// userIDFlag registers the required --user flag
func userIDFlag(cmd *cobra.Command, userID *int) {
	cmd.Flags().IntVar(userID, "user", 0, "User ID")
	_ = cmd.MarkFlagRequired("user")
}

func requirePositive(name string, v int) error {
	if v < 1 {
		return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "--%s must be a positive integer, got %d", name, v)
	}
	return nil
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maskDatabaseURL masks sensitive parts of the database URL for display
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			return "postgres://***:***@" + parts[1]
		}
	}
	return url
}

// getDatabaseInfo returns database connection information
func getDatabaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "Connected (unknown database)"
	}

	var host sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT inet_server_addr()::text").Scan(&host); err != nil || !host.Valid {
		return fmt.Sprintf("Connected to %s", dbName)
	}

	return fmt.Sprintf("Connected to %s on %s", dbName, host.String)
}
