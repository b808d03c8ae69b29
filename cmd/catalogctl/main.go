// Command catalogctl is the operator tool for the movie catalog: it mints
// admin tokens, seeds rating stars and prints or applies the schema.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/iliyamo/movie-catalog/internal/database"
	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/middleware"
	"github.com/iliyamo/movie-catalog/internal/repository"
	"github.com/iliyamo/movie-catalog/internal/utils"
)

// DBFlags locate the MySQL database, defaulting to the server's env vars.
type DBFlags struct {
	User string `help:"Database user." env:"DB_USER"`
	Pass string `help:"Database password." env:"DB_PASS"`
	Host string `help:"Database host." env:"DB_HOST" default:"127.0.0.1"`
	Port string `help:"Database port." env:"DB_PORT" default:"3306"`
	Name string `help:"Database name." env:"DB_NAME"`
}

var errNoDB = errors.New("--db-user and --db-name (or DB_USER and DB_NAME) are required")

func (f DBFlags) open() (*sql.DB, error) {
	if f.User == "" || f.Name == "" {
		return nil, errNoDB
	}
	return database.Open(f.User, f.Pass, f.Host, f.Port, f.Name)
}

// TokenCmd mints a bearer token for the admin API.
type TokenCmd struct {
	Secret  string `help:"HS256 signing secret." env:"JWT_SECRET" required:""`
	Subject string `help:"Token subject, e.g. the operator's name." required:""`
	Role    string `help:"Role claim." default:"${admin}"`
	TTL     int    `help:"Lifetime in minutes." env:"ACCESS_TOKEN_TTL_MIN" default:"60"`
}

func (c *TokenCmd) Run(out io.Writer) error {
	tok, err := utils.NewAccessToken(c.Secret, c.Subject, c.Role, time.Duration(c.TTL)*time.Minute)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(tok)
}

// StarsCmd inserts the rating star values that are missing.
type StarsCmd struct {
	DB     DBFlags `embed:"" prefix:"db-"`
	Values []int16 `help:"Star values to ensure." default:"1,2,3,4,5"`
}

func (c *StarsCmd) Run(out io.Writer) error {
	db, err := c.DB.open()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	added, err := repository.NewRatingStarRepo(db).EnsureValues(context.Background(), c.Values...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "added %d of %d star values\n", added, len(c.Values))
	return err
}

// SchemaCmd prints the DDL or applies it.
type SchemaCmd struct {
	Print bool    `help:"Print the DDL instead of applying it."`
	DB    DBFlags `embed:"" prefix:"db-"`
}

func (c *SchemaCmd) Run(out io.Writer) error {
	if c.Print {
		_, err := io.WriteString(out, database.Schema())
		return err
	}
	db, err := c.DB.open()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "schema applied (%d tables)\n", len(database.Statements()))
	return err
}

// CLI is the kong command tree.
type CLI struct {
	LogLevel string `help:"Log level." env:"LOG_LEVEL" default:"warn"`

	Token  TokenCmd  `cmd:"" help:"Mint an admin bearer token."`
	Stars  StarsCmd  `cmd:"" help:"Insert missing rating star values."`
	Schema SchemaCmd `cmd:"" help:"Print or apply the database schema."`
}

func run(args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("catalogctl"),
		kong.Description("Operator tool for the movie catalog."),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Vars{"admin": middleware.RoleAdmin},
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	logger.Init(cli.LogLevel)
	return ctx.Run()
}

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "catalogctl:", err)
		os.Exit(1)
	}
}
