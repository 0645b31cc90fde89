package deltactl

import (
	"errors"
	"fmt"

	"github.com/nickyhof/deltactl/core"
)

type CommandName string

const (
	CmdFiles    CommandName = "files"
	CmdSchema   CommandName = "schema"
	CmdVersion  CommandName = "version"
	CmdMetadata CommandName = "metadata"
	CmdHistory  CommandName = "history"
	CmdQuery    CommandName = "query"
)

// Commands lists every command in display order.
var Commands = []CommandName{CmdFiles, CmdHistory, CmdMetadata, CmdSchema, CmdVersion, CmdQuery}

var ErrMissingTable = errors.New("table reference is required")

type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// Command is one request against one table. Limit applies to history only,
// where 0 means all commits. SQL applies to query only and is passed to the
// engine as is, even when empty.
type Command struct {
	Name  CommandName `json:"command"`
	Table string      `json:"table"`
	Limit int         `json:"limit,omitempty"`
	SQL   string      `json:"sql,omitempty"`
}

func ParseCommandName(s string) (CommandName, error) {
	for _, name := range Commands {
		if string(name) == s {
			return name, nil
		}
	}
	return "", &UnknownCommandError{Name: s}
}

// Validate checks a command before any table is opened.
func (c Command) Validate() error {
	if _, err := ParseCommandName(string(c.Name)); err != nil {
		return err
	}
	if c.Table == "" {
		return ErrMissingTable
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidLimit, c.Limit)
	}
	return nil
}
