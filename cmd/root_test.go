package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidmaster/config"
	ncerr "bidmaster/internal/errors"
)

// TestExecute_Version verifies --version prints a version string.
func TestExecute_Version(t *testing.T) {
	err := Execute(context.Background(), []string{"--version"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestExecute_Help verifies --help (and no args) returns without error.
func TestExecute_Help(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {}} {
		name := "no-args"
		if len(args) > 0 {
			name = args[0]
		}
		t.Run(name, func(t *testing.T) {
			err := Execute(context.Background(), args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRun verifies --dry-run validates and exits cleanly.
func TestExecute_DryRun(t *testing.T) {
	tests := [][]string{
		{"-l", "-p", "8080", "--item", "Vase", "--dry-run"},
		{"-l", "--status-addr", ":8081", "--dry-run"},
		{"-N", "alice", "127.0.0.1", "6000", "--dry-run"},
		{"-N", "bob", "-T", "ops@bastion", "10.0.0.5", "--dry-run"},
		{"--dry-run", "-v", "-v"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if err := Execute(context.Background(), args); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// TestExecute_DryRunInvalid verifies --dry-run still catches bad configs.
func TestExecute_DryRunInvalid(t *testing.T) {
	tests := []struct {
		args  []string
		field string
	}{
		{[]string{"-l", "-p", "0", "--dry-run"}, "port"},
		{[]string{"-l", "-N", "alice", "--dry-run"}, "name"},
		{[]string{"-l", "--item", "a|b", "--dry-run"}, "item"},
		{[]string{"-l", "--backlog", "0", "--dry-run"}, "backlog"},
		{[]string{"--status-addr", ":8080", "--dry-run"}, "status-addr"},
		{[]string{"-N", "al|ice", "--dry-run"}, "name"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			err := Execute(context.Background(), tt.args)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *ncerr.ConfigError
			if !ncerr.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q", ce.Field, tt.field)
			}
		})
	}
}

// TestExecute_InvalidFlags verifies unknown flags produce an error.
func TestExecute_InvalidFlags(t *testing.T) {
	err := Execute(context.Background(), []string{"--nonexistent-flag"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

// TestExecute_BadPositional verifies malformed positional arguments.
func TestExecute_BadPositional(t *testing.T) {
	for _, args := range [][]string{
		{"host", "notaport", "--dry-run"},
		{"a", "b", "c", "--dry-run"},
		{"-l", "a", "b", "--dry-run"},
	} {
		if err := Execute(context.Background(), args); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

// TestExecute_ConflictingFlags verifies an auctioneer cannot listen
// through an SSH gateway.
func TestExecute_ConflictingFlags(t *testing.T) {
	err := Execute(context.Background(), []string{
		"-l", "-T", "ops@bastion", "--dry-run",
	})
	if err == nil {
		t.Fatal("expected error for -l with -T")
	}
	if !strings.Contains(err.Error(), "SSH gateway") {
		t.Errorf("error should mention the SSH gateway: %v", err)
	}
}

// TestExecute_ConfigPrecedence verifies flags beat the config file and
// the config file beats the environment.
func TestExecute_ConfigPrecedence(t *testing.T) {
	t.Setenv(config.EnvPrefix+"PORT", "6000")

	path := filepath.Join(t.TempDir(), "bidmaster.yaml")
	data := "listen: true\nport: 0\nbacklog: 16\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	// The file's invalid port is overridden by -p.
	err := Execute(context.Background(), []string{"--config", path, "-p", "7000", "--dry-run"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Without -p the file's port wins over the environment and fails.
	err = Execute(context.Background(), []string{"--config", path, "--dry-run"})
	var ce *ncerr.ConfigError
	if !ncerr.As(err, &ce) || ce.Field != "port" {
		t.Errorf("expected port ConfigError, got %v", err)
	}
}

// TestExecute_MissingConfigFile verifies a bad --config path is reported.
func TestExecute_MissingConfigFile(t *testing.T) {
	err := Execute(context.Background(), []string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"), "--dry-run",
	})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
