package main

import (
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Context struct {
	Debug bool

	gorm.Dialector
	gorm.Config

	Logger *slog.Logger
}

// open opens the database named by the global --dsn flag.
func (c *Context) open() (*gorm.DB, error) {
	db, err := gorm.Open(c.Dialector, &c.Config)
	if err != nil {
		return nil, err
	}
	return db, configureDB(db)
}

var cli struct {
	Debug    bool   `help:"Enable debug mode."`
	DSN      string `help:"data source name" default:"lysand:lysand@tcp(localhost:3306)/lysand" env:"LYSAND_DSN"`
	LogLevel string `help:"minimum level to log." default:"info" enum:"debug,info,warn,error" env:"LYSAND_LOG_LEVEL"`
	LogJSON  bool   `help:"log in JSON rather than text." env:"LYSAND_LOG_JSON"`

	AutoMigrate   AutoMigrateCmd   `cmd:"" help:"Automigrate the database."`
	CreateAccount CreateAccountCmd `cmd:"" help:"Create a new account."`
	DeleteAccount DeleteAccountCmd `cmd:"" help:"Delete an account and its relationships."`
	Follow        FollowCmd        `cmd:"" help:"Follow an account on behalf of a local account."`
	Serve         ServeCmd         `cmd:"" help:"Serve a local web server."`
}

func main() {
	ctx := kong.Parse(&cli)

	var level slog.Level
	ctx.FatalIfErrorf(level.UnmarshalText([]byte(cli.LogLevel)))
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cli.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	// relationship rows are created on first use, a missing row is not an error.
	dbLogger := logger.New(log.New(os.Stderr, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  true,
	})
	if cli.Debug {
		dbLogger = dbLogger.LogMode(logger.Info)
	}

	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
		Config: gorm.Config{
			Logger:         dbLogger,
			TranslateError: true,
		},
		Logger: slog.New(handler),
	})
	ctx.FatalIfErrorf(err)
}
