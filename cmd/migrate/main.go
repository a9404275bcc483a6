package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	appmigrations "github.com/clinicbook/clinic-booking/migrations"
)

const usage = "usage: migrate [up | down [steps] | force <version> | version]"

func main() {
	_ = godotenv.Load()

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	cmd, err := parseCommand(os.Args[1:])
	if err != nil {
		log.Fatalf("%v\n%s", err, usage)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("db driver: %v", err)
	}

	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		log.Fatalf("source driver: %v", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	msg, err := cmd.run(m)
	if err != nil {
		log.Fatalf("%s: %v", cmd.name, err)
	}
	fmt.Println(msg)
}

type command struct {
	name string
	arg  int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{name: "up"}, nil
	}
	switch args[0] {
	case "up", "version":
		return command{name: args[0]}, nil
	case "down":
		cmd := command{name: "down"}
		if len(args) >= 2 {
			steps, err := strconv.Atoi(args[1])
			if err != nil || steps <= 0 {
				return command{}, fmt.Errorf("invalid step count %q", args[1])
			}
			cmd.arg = steps
		}
		return cmd, nil
	case "force":
		if len(args) < 2 {
			return command{}, errors.New("force requires a version")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid version: %w", err)
		}
		return command{name: "force", arg: version}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

func (c command) run(m *migrate.Migrate) (string, error) {
	switch c.name {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", err
		}
		return "migrations complete", nil
	case "down":
		var err error
		if c.arg > 0 {
			err = m.Steps(-c.arg)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return "", err
		}
		return "rollback complete", nil
	case "force":
		if err := m.Force(c.arg); err != nil {
			return "", err
		}
		return fmt.Sprintf("forced version to %d", c.arg), nil
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "no migrations applied", nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("version %d (dirty=%t)", version, dirty), nil
	}
	return "", fmt.Errorf("unknown command %q", c.name)
}
