package deltactl

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/db"
	"github.com/nickyhof/deltactl/op"
	"github.com/nickyhof/deltactl/ps"
)

type Options struct {
	Storage ps.Options
	// Alias is the fallback view name for queries.
	Alias string
}

// Instance runs commands. It holds one query session; use one Instance per
// concurrent caller.
type Instance struct {
	opts   Options
	engine *db.Engine
}

func Open(opts Options) (*Instance, error) {
	engine, err := db.NewEngine(db.Options{Storage: opts.Storage, Alias: opts.Alias})
	if err != nil {
		return nil, err
	}
	return &Instance{opts: opts, engine: engine}, nil
}

func (instance *Instance) Engine() *db.Engine {
	return instance.engine
}

func (instance *Instance) Close() error {
	return instance.engine.Close()
}

// Execute opens the command's table, runs the operation and returns its
// result.
func (instance *Instance) Execute(ctx context.Context, cmd Command) (db.Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := log.WithFields(log.Fields{"command": cmd.Name, "table": cmd.Table})
	logger.Debug("executing command")

	table, err := op.Open(ctx, cmd.Table, op.Options{Storage: instance.opts.Storage, Engine: instance.engine})
	if err != nil {
		return nil, err
	}
	defer table.Close()

	result, err := instance.run(ctx, table, cmd)
	if err != nil {
		logger.WithError(err).Debug("command failed")
		return nil, err
	}

	logger.WithField("elapsed", time.Since(start)).Debug("command finished")
	return result, nil
}

func (instance *Instance) run(ctx context.Context, table op.Table, cmd Command) (db.Result, error) {
	switch cmd.Name {
	case CmdFiles:
		files, err := table.Files(ctx)
		if err != nil {
			return nil, err
		}
		return db.FilesResult{Files: files}, nil

	case CmdSchema:
		schema, err := table.Schema(ctx)
		if errors.Is(err, core.ErrNoSchema) {
			return db.SchemaResult{}, nil
		} else if err != nil {
			return nil, err
		}
		return db.SchemaResult{Schema: schema}, nil

	case CmdVersion:
		version, err := table.Version(ctx)
		if err != nil {
			return nil, err
		}
		return db.VersionResult{Version: version}, nil

	case CmdMetadata:
		metadata, err := table.Metadata(ctx)
		if err != nil {
			return nil, err
		}
		return db.MetadataResult{Metadata: metadata}, nil

	case CmdHistory:
		commits, err := table.History(ctx, cmd.Limit)
		if err != nil {
			return nil, err
		}
		return db.HistoryResult{Commits: commits}, nil

	case CmdQuery:
		src, err := table.Source(ctx)
		if err != nil {
			return nil, err
		}
		return instance.engine.Query(ctx, src, cmd.SQL)

	default:
		return nil, &UnknownCommandError{Name: string(cmd.Name)}
	}
}
