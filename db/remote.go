// Remote file access for S3 and HTTP data files.
package db

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/ps"
)

// ensureRemote loads the httpfs extension and registers S3 credentials the
// first time a remote file is touched in this session.
func (e *Engine) ensureRemote(ctx context.Context) error {
	e.remoteOnce.Do(func() {
		e.remoteErr = e.registerRemote(ctx)
	})
	return e.remoteErr
}

func (e *Engine) registerRemote(ctx context.Context) error {
	stmts := []string{"INSTALL httpfs", "LOAD httpfs"}
	if !e.opts.Storage.HasStaticCredentials() {
		// credential_chain needs the aws extension
		stmts = append(stmts, "INSTALL aws", "LOAD aws")
	}
	stmts = append(stmts, s3SecretStatement(e.opts.Storage))

	for _, stmt := range stmts {
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return &core.QueryError{SQL: redactSecret(stmt), Err: fmt.Errorf("registering remote storage: %w", err)}
		}
	}

	log.WithField("static_credentials", e.opts.Storage.HasStaticCredentials()).Debug("registered remote storage")
	return nil
}

// s3SecretStatement builds the CREATE SECRET statement for opts.
func s3SecretStatement(opts ps.Options) string {
	params := []string{"TYPE s3"}

	if opts.HasStaticCredentials() {
		params = append(params,
			"KEY_ID "+quoteLiteral(opts.AccessKey),
			"SECRET "+quoteLiteral(opts.SecretKey))
		if opts.SessionToken != "" {
			params = append(params, "SESSION_TOKEN "+quoteLiteral(opts.SessionToken))
		}
	} else {
		params = append(params, "PROVIDER credential_chain")
	}

	if opts.Region != "" {
		params = append(params, "REGION "+quoteLiteral(opts.Region))
	}

	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		useSSL := true
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			useSSL = false
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		}
		params = append(params,
			"ENDPOINT "+quoteLiteral(strings.TrimSuffix(endpoint, "/")),
			"URL_STYLE 'path'",
			fmt.Sprintf("USE_SSL %t", useSSL))
	}

	return "CREATE OR REPLACE SECRET deltactl_s3 (" + strings.Join(params, ", ") + ")"
}

// redactSecret hides credentials in statements echoed in errors.
func redactSecret(stmt string) string {
	if !strings.HasPrefix(stmt, "CREATE OR REPLACE SECRET") {
		return stmt
	}
	return "CREATE OR REPLACE SECRET deltactl_s3 (...)"
}
