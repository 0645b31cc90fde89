package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nickyhof/deltactl"
	"github.com/nickyhof/deltactl/cmd/internal/settings"
	"github.com/nickyhof/deltactl/db"
)

// Version is set at build time via -ldflags
var Version = "dev"

type serverFlags struct {
	port        int
	alias       string
	tlsCert     string
	tlsKey      string
	jwtSecret   string
	jwtIssuer   string
	jwtAudience string
}

func newServerCmd() (*cobra.Command, *settings.Settings) {
	cfg := settings.New("deltactl-server.hcl", "info")
	f := &serverFlags{port: 3306, alias: db.DefaultAlias}

	cmd := &cobra.Command{
		Use:           "deltactl-server",
		Short:         "Serve deltactl commands over TCP",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Apply(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg, f)
		},
	}

	fs := cmd.Flags()
	cfg.Register(fs)
	fs.IntVar(&f.port, "port", f.port, "TCP port to listen on")
	cfg.Bind(fs, "port")
	fs.StringVar(&f.alias, "alias", f.alias, "fallback table `name` for queries")
	cfg.Bind(fs, "alias")
	fs.StringVar(&f.tlsCert, "tls-cert", "", "TLS certificate `file`")
	cfg.Bind(fs, "tls-cert")
	fs.StringVar(&f.tlsKey, "tls-key", "", "TLS private key `file`")
	cfg.Bind(fs, "tls-key")
	fs.StringVar(&f.jwtSecret, "jwt-secret", "", "HS256 secret; enables AUTH JWT when set")
	cfg.Bind(fs, "jwt-secret")
	fs.StringVar(&f.jwtIssuer, "jwt-issuer", "", "required JWT issuer")
	cfg.Bind(fs, "jwt-issuer")
	fs.StringVar(&f.jwtAudience, "jwt-audience", "", "required JWT audience")
	cfg.Bind(fs, "jwt-audience")

	return cmd, cfg
}

func serve(cfg *settings.Settings, f *serverFlags) error {
	opts := deltactl.Options{Storage: cfg.Storage, Alias: f.alias}

	var server *Server
	if f.jwtSecret != "" {
		server = NewServerWithAuth(opts, &AuthConfig{
			Enabled:   true,
			JWTSecret: f.jwtSecret,
			Issuer:    f.jwtIssuer,
			Audience:  f.jwtAudience,
		})
	} else {
		server = NewServer(opts)
	}

	addr := fmt.Sprintf(":%d", f.port)
	var err error
	if f.tlsCert != "" || f.tlsKey != "" {
		err = server.StartTLS(addr, f.tlsCert, f.tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		return err
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	server.Stop()
	log.Info("server stopped")
	return nil
}

func main() {
	cmd, cfg := newServerCmd()
	err := cmd.Execute()
	cfg.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
