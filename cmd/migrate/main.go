// Command migrate applies the audit schema migrations for deployment
// pipelines that hold a connection URL but not the full referrals config.
//
//	migrate [-dsn url] [-config path] up|down|version|steps N|force N
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"github.com/JaimeStill/referrals/internal/audit"
	"github.com/JaimeStill/referrals/internal/config"
)

const envDSN = "REFERRALS_DB_DSN"

func main() {
	dsn := flag.String("dsn", "", "postgres:// connection URL (default $"+envDSN+", then config)")
	cfgPath := flag.String("config", config.BaseConfigFile, "config file consulted when no DSN is given")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [flags] up|down|version|steps N|force N")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	url, err := resolveDSN(*dsn, *cfgPath)
	if err != nil {
		log.Fatalf("resolve dsn: %v", err)
	}

	m, err := audit.NewMigrator(url)
	if err != nil {
		log.Fatal(err)
	}

	msg, err := apply(m, flag.Args())
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		log.Printf("close migrator: %v", errors.Join(srcErr, dbErr))
	}
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(msg)
}

func resolveDSN(flagDSN, cfgPath string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	cfg, err := config.LoadFile(cfgPath)
	if err != nil {
		return "", err
	}
	return cfg.Database.URL(), nil
}

func apply(m *migrate.Migrate, args []string) (string, error) {
	ignoreNoChange := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return err
	}

	switch args[0] {
	case "up":
		if err := ignoreNoChange(m.Up()); err != nil {
			return "", fmt.Errorf("apply migrations: %w", err)
		}
		return "audit schema up to date", nil
	case "down":
		if err := ignoreNoChange(m.Down()); err != nil {
			return "", fmt.Errorf("revert migrations: %w", err)
		}
		return "audit schema reverted", nil
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "version: none", nil
		}
		if err != nil {
			return "", fmt.Errorf("read version: %w", err)
		}
		return fmt.Sprintf("version: %d, dirty: %v", v, dirty), nil
	case "steps", "force":
		if len(args) < 2 {
			return "", fmt.Errorf("%s requires a number", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("%s: %w", args[0], err)
		}
		if args[0] == "force" {
			if err := m.Force(n); err != nil {
				return "", fmt.Errorf("force version %d: %w", n, err)
			}
			return fmt.Sprintf("forced to version %d", n), nil
		}
		if err := ignoreNoChange(m.Steps(n)); err != nil {
			return "", fmt.Errorf("step %d: %w", n, err)
		}
		return fmt.Sprintf("applied %d migration steps", n), nil
	default:
		return "", fmt.Errorf("unknown command %q", args[0])
	}
}
