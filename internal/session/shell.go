package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/logger"
)

// Shell is the surface the session consumes from the interactive shell.
// Everything here is a side-effect service: output, error reporting, the
// isolation command, and completion rebuilding. The session never depends
// on how the shell renders any of it.
type Shell interface {
	// Output prints an informational message to the user.
	Output(msg string)

	// Debug prints a diagnostic message.
	Debug(msg string)

	// Error reports a failure that aborted an operation.
	Error(err error)

	// HandleException reports a contained, non-fatal failure.
	HandleException(err error)

	// AutocommitStatus reports the connection's auto-commit state after a
	// connect applied it.
	AutocommitStatus(conn driver.Conn)

	// Isolation applies the configured isolation level to conn. Level ""
	// means "leave the driver default".
	Isolation(ctx context.Context, conn driver.Conn, level string) error

	// ShowWarnings surfaces driver warnings accumulated during connect.
	ShowWarnings(warnings []string)

	// BuildCompleter constructs the completion artifact for sess. skipMeta
	// skips catalog lookups so completion never triggers driver round-trips.
	BuildCompleter(ctx context.Context, sess *Session, skipMeta bool) Completer
}

// Completer is the completion artifact a session owns after SetCompletions.
// Its construction and presentation belong to the shell; the session only
// stores and exposes it.
type Completer interface {
	// Complete returns candidate continuations for prefix, sorted.
	Complete(prefix string) []string
}

// ConsoleShell is the default Shell, logging through the injected Logger.
// Interactive front ends replace it; tests substitute a recording fake.
type ConsoleShell struct {
	Log *logger.Logger
}

// NewConsoleShell creates a ConsoleShell. A nil log uses logger defaults.
func NewConsoleShell(log *logger.Logger) *ConsoleShell {
	if log == nil {
		log = logger.New(nil)
	}
	return &ConsoleShell{Log: log}
}

func (c *ConsoleShell) Output(msg string) {
	c.Log.Info(msg)
}

func (c *ConsoleShell) Debug(msg string) {
	c.Log.Debug(msg)
}

func (c *ConsoleShell) Error(err error) {
	c.Log.Errorf("%v", err)
}

func (c *ConsoleShell) HandleException(err error) {
	c.Log.Warnf("%v", err)
}

func (c *ConsoleShell) AutocommitStatus(conn driver.Conn) {
	c.Log.Info(fmt.Sprintf("autocommit: %v", conn.AutoCommit()))
}

func (c *ConsoleShell) Isolation(ctx context.Context, conn driver.Conn, level string) error {
	if level == "" {
		return nil
	}
	if err := conn.SetIsolation(ctx, level); err != nil {
		return err
	}
	c.Log.Debugf("isolation: %s", level)
	return nil
}

func (c *ConsoleShell) ShowWarnings(warnings []string) {
	for _, w := range warnings {
		c.Log.Warn(w)
	}
}

// BuildCompleter builds a word completer from the session's dialect keywords
// plus, unless skipMeta is set, the cached table names.
func (c *ConsoleShell) BuildCompleter(ctx context.Context, sess *Session, skipMeta bool) Completer {
	var words []string
	if d := sess.Dialect(); d != nil {
		words = append(words, d.Keywords()...)
	}
	if !skipMeta {
		words = append(words, sess.TableNames(ctx, false)...)
	}
	sort.Strings(words)
	return &wordCompleter{words: words}
}

// wordCompleter completes against a fixed, sorted word list.
type wordCompleter struct {
	words []string
}

func (w *wordCompleter) Complete(prefix string) []string {
	var out []string
	for _, word := range w.words {
		if strings.HasPrefix(strings.ToUpper(word), strings.ToUpper(prefix)) {
			out = append(out, word)
		}
	}
	return out
}
