package txlog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/ps"
)

// LogDir is the directory, relative to the table root, holding the log.
const LogDir = "_delta_log"

var (
	commitPattern     = regexp.MustCompile(`^(\d{20})\.json$`)
	checkpointPattern = regexp.MustCompile(`^(\d{20})\.checkpoint\.parquet$`)
	multiPartPattern  = regexp.MustCompile(`^(\d{20})\.checkpoint\.(\d{10})\.(\d{10})\.parquet$`)
)

type logFile struct {
	version int64
	name    string
	modTime time.Time
}

type checkpoint struct {
	version int64
	parts   []string
}

// Log is the listed transaction log of one table. It is immutable once
// opened; call Open again to observe newer commits.
type Log struct {
	store       ps.Store
	commits     []logFile
	checkpoints []checkpoint
}

// Open lists the table's log directory. A location without a log, or with
// a log holding neither commits nor checkpoints, is not a versioned table.
func Open(ctx context.Context, store ps.Store) (*Log, error) {
	entries, err := store.List(ctx, LogDir)
	if err != nil {
		if errors.Is(err, ps.ErrNotFound) {
			return nil, fmt.Errorf("%w: no %s directory", core.ErrNotVersionedTable, LogDir)
		}
		return nil, err
	}

	l := &Log{store: store}
	parts := map[int64]map[int64]string{}
	totals := map[int64]int64{}

	for _, e := range entries {
		if e.IsDir {
			continue
		}
		if m := commitPattern.FindStringSubmatch(e.Name); m != nil {
			v, _ := strconv.ParseInt(m[1], 10, 64)
			l.commits = append(l.commits, logFile{version: v, name: e.Name, modTime: e.ModTime})
			continue
		}
		if m := checkpointPattern.FindStringSubmatch(e.Name); m != nil {
			v, _ := strconv.ParseInt(m[1], 10, 64)
			l.checkpoints = append(l.checkpoints, checkpoint{version: v, parts: []string{e.Name}})
			continue
		}
		if m := multiPartPattern.FindStringSubmatch(e.Name); m != nil {
			v, _ := strconv.ParseInt(m[1], 10, 64)
			part, _ := strconv.ParseInt(m[2], 10, 64)
			total, _ := strconv.ParseInt(m[3], 10, 64)
			if parts[v] == nil {
				parts[v] = map[int64]string{}
			}
			parts[v][part] = e.Name
			totals[v] = total
		}
	}

	for v, found := range parts {
		total := totals[v]
		if int64(len(found)) != total {
			log.WithFields(log.Fields{"version": v, "parts": len(found), "total": total}).
				Debug("skipping incomplete checkpoint")
			continue
		}
		cp := checkpoint{version: v}
		for i := int64(1); i <= total; i++ {
			cp.parts = append(cp.parts, found[i])
		}
		l.checkpoints = append(l.checkpoints, cp)
	}

	sort.Slice(l.commits, func(i, j int) bool { return l.commits[i].version < l.commits[j].version })
	sort.Slice(l.checkpoints, func(i, j int) bool { return l.checkpoints[i].version < l.checkpoints[j].version })

	if len(l.commits) == 0 && len(l.checkpoints) == 0 {
		return nil, fmt.Errorf("%w: %s holds no commits", core.ErrNotVersionedTable, LogDir)
	}

	log.WithFields(log.Fields{
		"table":       store.Root(),
		"commits":     len(l.commits),
		"checkpoints": len(l.checkpoints),
	}).Debug("listed transaction log")

	return l, nil
}

// Root returns the table root.
func (l *Log) Root() string {
	return l.store.Root()
}

// LatestVersion returns the newest version recorded in the log.
func (l *Log) LatestVersion() int64 {
	latest := int64(-1)
	if n := len(l.commits); n > 0 {
		latest = l.commits[n-1].version
	}
	if n := len(l.checkpoints); n > 0 && l.checkpoints[n-1].version > latest {
		latest = l.checkpoints[n-1].version
	}
	return latest
}

// Snapshot replays the log up to the latest version: the newest complete
// checkpoint first, then every later commit in order.
func (l *Log) Snapshot(ctx context.Context) (*Snapshot, error) {
	latest := l.LatestVersion()
	state := newReplayState()

	start := int64(0)
	if n := len(l.checkpoints); n > 0 {
		cp := l.checkpoints[n-1]
		actions, err := readCheckpoint(ctx, l.store, cp.parts)
		if err != nil {
			return nil, fmt.Errorf("checkpoint %d: %w", cp.version, err)
		}
		state.apply(actions)
		start = cp.version + 1
		log.WithFields(log.Fields{"version": cp.version, "parts": len(cp.parts)}).Debug("loaded checkpoint")
	}

	expected := start
	for _, c := range l.commits {
		if c.version < start {
			continue
		}
		if c.version != expected {
			return nil, fmt.Errorf("transaction log is missing version %d", expected)
		}
		actions, err := l.readCommit(ctx, c)
		if err != nil {
			return nil, err
		}
		state.apply(actions)
		expected++
	}
	if expected <= latest {
		return nil, fmt.Errorf("transaction log is missing version %d", expected)
	}

	log.WithFields(log.Fields{
		"table":   l.Root(),
		"version": latest,
		"files":   len(state.files),
	}).Debug("replayed transaction log")

	return &Snapshot{
		Version:  latest,
		Root:     l.Root(),
		Metadata: state.metadata,
		Protocol: state.protocol,
		files:    state.activeFiles(),
	}, nil
}

// History returns up to limit commit records, most recent first. A limit of
// zero returns every commit still present in the log; negative limits are
// rejected. Commits folded into a checkpoint and cleaned up are not listed.
func (l *Log) History(ctx context.Context, limit int) ([]core.CommitInfo, error) {
	if limit < 0 {
		return nil, core.ErrInvalidLimit
	}

	n := len(l.commits)
	if limit > 0 && limit < n {
		n = limit
	}

	history := make([]core.CommitInfo, 0, n)
	for i := len(l.commits) - 1; i >= len(l.commits)-n; i-- {
		c := l.commits[i]
		actions, err := l.readCommit(ctx, c)
		if err != nil {
			return nil, err
		}
		history = append(history, commitRecord(c, actions))
	}
	return history, nil
}

func (l *Log) readCommit(ctx context.Context, c logFile) ([]Action, error) {
	data, err := l.store.Read(ctx, path.Join(LogDir, c.name))
	if err != nil {
		return nil, fmt.Errorf("reading commit %d: %w", c.version, err)
	}
	actions, err := DecodeActions(data)
	if err != nil {
		return nil, fmt.Errorf("commit %d: %w", c.version, err)
	}
	return actions, nil
}

func commitRecord(c logFile, actions []Action) core.CommitInfo {
	record := core.CommitInfo{Version: c.version, Timestamp: c.modTime}

	for _, a := range actions {
		ci := a.CommitInfo
		if ci == nil {
			continue
		}
		if ci.Timestamp != nil {
			record.Timestamp = time.UnixMilli(*ci.Timestamp).UTC()
		}
		record.Operation = ci.Operation
		record.OperationParameters = ci.OperationParameters
		record.UserID = ci.UserID
		record.UserName = ci.UserName
		record.ClusterID = ci.ClusterID
		record.ReadVersion = ci.ReadVersion
		record.IsolationLevel = ci.IsolationLevel
		record.IsBlindAppend = ci.IsBlindAppend
		record.EngineInfo = ci.EngineInfo
		if len(ci.OperationMetrics) > 0 {
			record.OperationMetrics = make(map[string]string, len(ci.OperationMetrics))
			for k, v := range ci.OperationMetrics {
				record.OperationMetrics[k] = fmt.Sprint(v)
			}
		}
		break
	}
	return record
}

type replayState struct {
	files map[string]*Add
	// seq is the position at which each active path was last added.
	seq      map[string]int
	next     int
	metadata *Metadata
	protocol *Protocol
}

func newReplayState() *replayState {
	return &replayState{files: map[string]*Add{}, seq: map[string]int{}}
}

func (s *replayState) apply(actions []Action) {
	for _, a := range actions {
		switch {
		case a.Add != nil:
			if _, ok := s.files[a.Add.Path]; !ok {
				s.seq[a.Add.Path] = s.next
				s.next++
			}
			s.files[a.Add.Path] = a.Add
		case a.Remove != nil:
			delete(s.files, a.Remove.Path)
			delete(s.seq, a.Remove.Path)
		case a.MetaData != nil:
			s.metadata = a.MetaData
		case a.Protocol != nil:
			s.protocol = a.Protocol
		}
	}
}

func (s *replayState) activeFiles() []*Add {
	files := make([]*Add, 0, len(s.files))
	for _, add := range s.files {
		files = append(files, add)
	}
	sort.Slice(files, func(i, j int) bool {
		return s.seq[files[i].Path] < s.seq[files[j].Path]
	})
	return files
}

// Snapshot is the replayed state of a table at one version.
type Snapshot struct {
	Version  int64
	Root     string
	Metadata *Metadata
	Protocol *Protocol
	files    []*Add
}

// Files returns the active add actions in the order they were added.
func (s *Snapshot) Files() []*Add {
	return s.files
}

// FileURIs returns the absolute location of every active data file.
func (s *Snapshot) FileURIs() ([]string, error) {
	uris := make([]string, len(s.files))
	for i, f := range s.files {
		p, err := url.PathUnescape(f.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid file path %q: %w", f.Path, err)
		}
		uris[i] = ps.Join(s.Root, p)
	}
	return uris, nil
}

// Schema returns the table schema, or core.ErrNoSchema when the log
// carries no metaData action or an empty schemaString.
func (s *Snapshot) Schema() (*core.Schema, error) {
	if s.Metadata == nil || s.Metadata.SchemaString == "" {
		return nil, core.ErrNoSchema
	}
	return ParseSchema(s.Metadata.SchemaString)
}

// TableMetadata converts the metaData action into the shared record.
func (s *Snapshot) TableMetadata() (*core.TableMetadata, error) {
	if s.Metadata == nil {
		return nil, core.ErrNoMetadata
	}

	m := s.Metadata
	md := &core.TableMetadata{
		ID:               m.ID,
		Name:             m.Name,
		Description:      m.Description,
		Format:           core.Format{Provider: m.Format.Provider, Options: m.Format.Options},
		PartitionColumns: m.PartitionColumns,
		Configuration:    m.Configuration,
	}
	if md.PartitionColumns == nil {
		md.PartitionColumns = []string{}
	}
	if m.CreatedTime != nil {
		created := time.UnixMilli(*m.CreatedTime).UTC()
		md.CreatedTime = &created
	}
	if m.SchemaString != "" {
		schema, err := ParseSchema(m.SchemaString)
		if err != nil {
			return nil, err
		}
		md.Schema = schema
	}
	numFiles := int64(len(s.files))
	md.NumFiles = &numFiles
	return md, nil
}
