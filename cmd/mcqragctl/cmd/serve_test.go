package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_ExitsOnInterruptAfterWatching(t *testing.T) {
	// Given: an empty bank and a serve command running in the background
	tmpDir := t.TempDir()
	bank := filepath.Join(tmpDir, "bank.jsonl")

	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"serve", "--bank", bank})

	done := make(chan error, 1)
	go func() { done <- rootCmd.Execute() }()

	// When: sending SIGINT shortly after it starts watching
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	// Then: it shuts down cleanly instead of hanging
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not exit after SIGINT")
	}
	assert.Contains(t, buf.String(), "watching for changes")
	assert.Contains(t, buf.String(), "shutting down")
}
