package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/iliyamo/movie-catalog/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

var createTableRe = regexp.MustCompile(`(?i)^CREATE TABLE IF NOT EXISTS\s+(\w+)`)

// Schema returns the raw DDL.
func Schema() string { return schemaSQL }

// Statements splits the DDL into executable statements, dropping comment
// lines and blank statements. Statements end with a semicolon at end of line.
func Statements() []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range strings.Split(schemaSQL, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			stmt := strings.TrimSuffix(strings.TrimSpace(cur.String()), ";")
			out = append(out, stmt)
			cur.Reset()
		}
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// TableName reports the table a CREATE TABLE statement declares.
func TableName(stmt string) string {
	if m := createTableRe.FindStringSubmatch(strings.TrimSpace(stmt)); m != nil {
		return m[1]
	}
	return ""
}

// EnsureSchema executes every statement in order. Tables are created only
// when missing; existing tables are left untouched.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	log := logger.Get()
	for _, stmt := range Statements() {
		table := TableName(stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure table %s: %w", table, err)
		}
		log.WithField("table", table).Debug("table ensured")
	}
	log.WithField("statements", len(Statements())).Info("schema ensured")
	return nil
}
