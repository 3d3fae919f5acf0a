package session

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeck/sqldeck/internal/logger"
)

func TestWordCompleter(t *testing.T) {
	w := &wordCompleter{words: []string{"LIMIT", "accounts", "limit_marker", "orders"}}

	assert.Equal(t, []string{"LIMIT", "limit_marker"}, w.Complete("li"))
	assert.Equal(t, []string{"orders"}, w.Complete("ORD"))
	assert.Empty(t, w.Complete("zzz"))

	// empty prefix matches everything
	assert.Len(t, w.Complete(""), 4)
}

func TestConsoleShellBuildCompleter(t *testing.T) {
	sess, _, _ := newFixture(healthyMeta())
	require.NoError(t, sess.Connect(context.Background()))

	shell := NewConsoleShell(nil)

	c := shell.BuildCompleter(context.Background(), sess, false)
	require.NotNil(t, c)
	assert.Equal(t, []string{"LIMIT"}, c.Complete("li"))
	assert.Equal(t, []string{"accounts"}, c.Complete("acc"))

	// skipMeta leaves table names out
	c = shell.BuildCompleter(context.Background(), sess, true)
	assert.Empty(t, c.Complete("acc"))
	assert.Equal(t, []string{"OFFSET"}, c.Complete("off"))
}

func TestConsoleShellBuildCompleterWithoutDialect(t *testing.T) {
	sess, _, _ := newFixture(healthyMeta())

	// disconnected: no dialect, no tables, still a usable completer
	c := NewConsoleShell(nil).BuildCompleter(context.Background(), sess, true)
	require.NotNil(t, c)
	assert.Empty(t, c.Complete("a"))
}

func TestConsoleShellLogsThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&logger.Config{Level: "debug", Format: "json", Output: &buf})
	shell := NewConsoleShell(log)

	shell.Output("hello")
	shell.Debug("details")
	shell.ShowWarnings([]string{"careful"})

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "details")
	assert.Contains(t, out, "careful")
}
