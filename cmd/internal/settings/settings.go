// Package settings holds the flags shared by the deltactl binaries: logging,
// the HCL config file and storage credentials.
package settings

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/hcl"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nickyhof/deltactl/ps"
)

type Settings struct {
	LogFile  string
	LogLevel string

	ConfigFile string
	NoConfig   bool

	Storage ps.Options

	defaultConfig string
	cfgVars       map[string]*pflag.Flag
	usedFlags     map[string]struct{}
	logWriter     io.WriteCloser
}

func New(defaultConfig, defaultLogLevel string) *Settings {
	return &Settings{
		LogLevel:      defaultLogLevel,
		ConfigFile:    defaultConfig,
		defaultConfig: defaultConfig,
		cfgVars:       map[string]*pflag.Flag{},
		usedFlags:     map[string]struct{}{},
	}
}

// Register adds the shared flags to fs.
func (s *Settings) Register(fs *pflag.FlagSet) {
	fs.StringVar(&s.LogFile, "log-file", s.LogFile, "`file` to append logs to (default standard error)")
	s.Bind(fs, "log-file")

	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	s.Bind(fs, "log-level")

	fs.StringVar(&s.ConfigFile, "config-file", s.ConfigFile, "`file` to load config from")
	fs.BoolVar(&s.NoConfig, "no-config", s.NoConfig, "don't load config file")

	fs.StringVar(&s.Storage.Region, "s3-region", "", "S3 region")
	s.Bind(fs, "s3-region")
	fs.StringVar(&s.Storage.Endpoint, "s3-endpoint", "", "S3 endpoint `url` for S3-compatible stores")
	s.Bind(fs, "s3-endpoint")
	fs.StringVar(&s.Storage.AccessKey, "s3-access-key", "", "S3 access key id")
	s.Bind(fs, "s3-access-key")
	fs.StringVar(&s.Storage.SecretKey, "s3-secret-key", "", "S3 secret access key")
	s.Bind(fs, "s3-secret-key")
	fs.StringVar(&s.Storage.SessionToken, "s3-session-token", "", "S3 session token")
	s.Bind(fs, "s3-session-token")
}

// Bind makes the flag name settable from the config file.
func (s *Settings) Bind(fs *pflag.FlagSet, name string) {
	s.cfgVars[name] = fs.Lookup(name)
}

// Apply loads the config file and sets up logging. It is meant to run as
// a PersistentPreRunE.
func (s *Settings) Apply(cmd *cobra.Command) error {
	cmd.Flags().Visit(
		func(flg *pflag.Flag) {
			s.usedFlags[flg.Name] = struct{}{}
		})

	if s.ConfigFile != "" && !s.NoConfig {
		if err := s.loadConfig(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	log.SetFormatter(&log.TextFormatter{
		DisableLevelTruncation: true,
	})
	log.SetOutput(cmd.ErrOrStderr())

	if s.LogFile != "" {
		w, err := os.OpenFile(s.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		s.logWriter = w
		log.SetOutput(w)
	}

	ll, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(ll)
	return nil
}

// Close releases the log file, if any, and sends logs back to standard
// error. It is safe to call more than once.
func (s *Settings) Close() {
	if s.logWriter != nil {
		log.SetOutput(os.Stderr)
		s.logWriter.Close()
		s.logWriter = nil
	}
}

func (s *Settings) loadConfig() error {
	b, err := os.ReadFile(s.ConfigFile)
	if err != nil {
		_, explicit := s.usedFlags["config-file"]
		if errors.Is(err, os.ErrNotExist) && !explicit && s.ConfigFile == s.defaultConfig {
			return nil
		}
		return err
	}

	cfg := map[string]interface{}{}
	if err := hcl.Decode(&cfg, string(b)); err != nil {
		return err
	}

	for name, val := range cfg {
		flg, ok := s.cfgVars[name]
		if !ok {
			return fmt.Errorf("%s is not a config variable", name)
		}
		if flg == nil {
			continue
		}
		if _, ok := s.usedFlags[flg.Name]; ok {
			continue
		}
		if err := flg.Value.Set(fmt.Sprintf("%v", val)); err != nil {
			return fmt.Errorf("%s: %s", name, err)
		}
	}
	return nil
}
