package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"incapacity-claims/common/database"
)

var migrateCmd = &cobra.Command{
	Use:   "apply-migration <file.sql>",
	Short: "Execute a SQL migration file statement by statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		db, err := database.NewPostgresDB(databaseConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close(db)

		fmt.Fprintf(cmd.OutOrStdout(), "Executing migration: %s\n", args[0])
		n, err := applyStatements(cmd.Context(), db, splitStatements(string(content)), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migration completed successfully (%d statements)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

// splitStatements breaks a migration into executable statements. Comment
// lines are dropped; statements are separated by ';'. Dollar-quoted bodies
// are not supported.
func splitStatements(content string) []string {
	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func applyStatements(ctx context.Context, db *sql.DB, stmts []string, w io.Writer) (int, error) {
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("statement %d failed: %w\n%s", i+1, err, stmt)
		}
		fmt.Fprintf(w, "  statement %d/%d ok\n", i+1, len(stmts))
	}
	return len(stmts), nil
}
