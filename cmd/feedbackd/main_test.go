package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/feedbackd/internal/config"
	"github.com/2389/feedbackd/internal/export"
	"github.com/2389/feedbackd/internal/store"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestColorHandler(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.With("component", "server").Info("listening", "addr", "127.0.0.1:8080")
	logger.Debug("hidden")
	logger.WithGroup("req").Warn("slow", "ms", 900)

	out := buf.String()
	assert.Contains(t, out, "INF listening component=server addr=127.0.0.1:8080")
	assert.Contains(t, out, "WRN slow req.ms=900")
	assert.NotContains(t, out, "hidden")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.Debug("hello", "n", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), "hash-password", nil, strings.NewReader("correct horse battery\n"), &out)
	require.NoError(t, err)

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse battery")))
}

func TestHashPassword_Flag(t *testing.T) {
	var out bytes.Buffer

	err := run(context.Background(), "hash-password", []string{"--password", "another long one"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.String(), "$2"))
}

func TestHashPassword_TooShort(t *testing.T) {
	err := run(context.Background(), "hash-password", nil, strings.NewReader("short\n"), &bytes.Buffer{})
	assert.Error(t, err)

	err = run(context.Background(), "hash-password", nil, strings.NewReader(""), &bytes.Buffer{})
	assert.EqualError(t, err, "password is required")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	var out bytes.Buffer

	err := run(context.Background(), "init", []string{"--config", path, "--password", "correct horse battery"}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Created config")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Len(t, cfg.Session.Secret, 64)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cfg.Admin.PasswordHash), []byte("correct horse battery")))

	// Refuses to clobber without --force
	err = run(context.Background(), "init", []string{"--config", path, "--password", "correct horse battery"}, strings.NewReader(""), &out)
	assert.ErrorContains(t, err, "already exists")

	err = run(context.Background(), "init", []string{"--config", path, "--password", "correct horse battery", "--force"}, strings.NewReader(""), &out)
	assert.NoError(t, err)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "feedback.db")
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse battery"), bcrypt.MinCost)
	require.NoError(t, err)

	cfgText := strings.Replace(config.Starter(strings.Repeat("s", 32), string(hash)), `"./feedback.db"`, `"`+dbPath+`"`, 1)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgText), 0600))

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	for _, r := range []int{5, 3} {
		_, err := s.InsertFeedback(context.Background(), &store.FeedbackEntry{Rating: r, Name: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	outDir := filepath.Join(dir, "dataset")
	var out bytes.Buffer
	err = run(context.Background(), "export", []string{"--config", cfgPath, "--dir", outDir}, nil, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Exported 2 entries")

	files, err := filepath.Glob(filepath.Join(outDir, "feedback_export_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var records []export.Record
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 2)
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), "frobnicate", nil, nil, &bytes.Buffer{})
	assert.EqualError(t, err, "unknown command: frobnicate")
}

func TestHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), "help", nil, nil, &out))
	assert.Contains(t, out.String(), "hash-password")
}

// Release builds override this with -ldflags "-X main.version=...".
func TestVersion_DefaultsToDev(t *testing.T) {
	assert.Equal(t, "dev", version)
}
