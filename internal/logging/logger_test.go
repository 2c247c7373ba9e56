package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banka.log")

	logger, closer, err := Open("debug", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	logger.Info("deposit committed", "account_id", "acc-1")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"account_id":"acc-1"`) {
		t.Fatalf("expected record in log file, got %q", data)
	}
}

func TestOpenWithoutPath(t *testing.T) {
	logger, closer, err := Open("info", "")
	if err != nil || logger == nil {
		t.Fatalf("expected stdout logger, got %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
