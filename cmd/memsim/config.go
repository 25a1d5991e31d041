package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// config holds the settings shared by all the sub-commands. Values come from
// the defaults, then the .env file, then MEMSIM_* environment variables, then
// the command-line flags.
type config struct {
	LogCapacity     int
	CheckInvariants bool
	Record          string
	Port            int
	Open            bool
}

func defaultConfig() config {
	return config{
		LogCapacity: 64,
	}
}

// loadEnvFile exports the variables of the .env file that are not set yet. A
// missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

type envLookup func(key string) (string, bool)

func (c *config) applyEnv(lookup envLookup) error {
	if v, ok := lookup("MEMSIM_LOG_CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMSIM_LOG_CAPACITY: %w", err)
		}

		c.LogCapacity = n
	}

	if v, ok := lookup("MEMSIM_CHECK_INVARIANTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEMSIM_CHECK_INVARIANTS: %w", err)
		}

		c.CheckInvariants = b
	}

	if v, ok := lookup("MEMSIM_RECORD"); ok {
		c.Record = v
	}

	if v, ok := lookup("MEMSIM_PORT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MEMSIM_PORT: %w", err)
		}

		c.Port = n
	}

	if v, ok := lookup("MEMSIM_OPEN"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MEMSIM_OPEN: %w", err)
		}

		c.Open = b
	}

	return nil
}

// applyFlags copies the flags that are explicitly set on the command line.
func (c *config) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error

	if changed("log-capacity") {
		c.LogCapacity, err = flags.GetInt("log-capacity")
		if err != nil {
			return err
		}
	}

	if changed("check-invariants") {
		c.CheckInvariants, err = flags.GetBool("check-invariants")
		if err != nil {
			return err
		}
	}

	if changed("record") {
		c.Record, err = flags.GetString("record")
		if err != nil {
			return err
		}
	}

	if changed("port") {
		c.Port, err = flags.GetInt("port")
		if err != nil {
			return err
		}
	}

	if changed("open") {
		c.Open, err = flags.GetBool("open")
		if err != nil {
			return err
		}
	}

	return c.validate()
}

func (c *config) validate() error {
	if c.LogCapacity <= 0 {
		return fmt.Errorf("log capacity must be positive, got %d",
			c.LogCapacity)
	}

	return nil
}
