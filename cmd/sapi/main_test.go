// main_test.go
package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Helper process setup
// -----------------------------------------------------------------------------

// TestMain triggers helper process mode when GO_HELPER_PROCESS is set.
func TestMain(m *testing.M) {
	if os.Getenv("GO_HELPER_PROCESS") == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runCLI runs the current test binary as a helper process running the CLI.
func runCLI(args []string, extraEnv ...string) (string, error) {
	return runCLIStdin("", args, extraEnv...)
}

// runCLIStdin is runCLI with the given string piped to stdin.
func runCLIStdin(stdin string, args []string, extraEnv ...string) (string, error) {
	cmd := exec.Command(os.Args[0], args...)
	cmd.Env = append(os.Environ(), "GO_HELPER_PROCESS=1")
	cmd.Env = append(cmd.Env, extraEnv...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// newCLIFixture creates a migrations dir with one change-set and returns
// the common sqlite flags for it.
func newCLIFixture(t *testing.T) (migDir string, flags []string) {
	t.Helper()
	dir := t.TempDir()
	migDir = filepath.Join(dir, "migrations")
	if err := os.Mkdir(migDir, 0755); err != nil {
		t.Fatalf("failed to create migrations dir: %v", err)
	}
	content := "-- UP\nCREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT);\n-- DOWN\nDROP TABLE users;\n"
	if err := os.WriteFile(filepath.Join(migDir, "2025_01_01_00_00_create_users.sql"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write change-set: %v", err)
	}
	dbPath := filepath.Join(dir, "db.sqlite")
	flags = []string{
		"-driver", "sqlite3",
		"-database", dbPath,
		"-pattern", filepath.Join(migDir, "*.sql"),
	}
	return migDir, flags
}

// -----------------------------------------------------------------------------
// Command parsing
// -----------------------------------------------------------------------------

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want command
	}{
		{"migrate:make", cmdMigrateMake},
		{"migrate", cmdMigrate},
		{"migrate:pending", cmdMigratePending},
		{"migrate:status", cmdMigrateStatus},
		{"migrate:rollback", cmdMigrateRollback},
		{"migrate:fresh", cmdMigrateFresh},
		{"query", cmdQuery},
	}
	for _, tt := range tests {
		got, err := parseCommand(tt.in)
		if err != nil {
			t.Errorf("parseCommand(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCommandUnknown(t *testing.T) {
	_, err := parseCommand("migrate:sideways")
	if !errors.Is(err, errUnknownCommand) {
		t.Fatalf("expected errUnknownCommand, got %v", err)
	}
}

// -----------------------------------------------------------------------------
// Baseline CLI behaviour tests
// -----------------------------------------------------------------------------

// TestCLIHelp checks that -help prints usage info.
func TestCLIHelp(t *testing.T) {
	out, _ := runCLI([]string{"-help"})
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help usage info, got:\n%s", out)
	}
}

// TestCLIVersion checks that -version prints version string.
func TestCLIVersion(t *testing.T) {
	out, _ := runCLI([]string{"-version"})
	if !strings.Contains(out, "sapi version:") {
		t.Errorf("expected version info, got:\n%s", out)
	}
}

// TestCLINoCommand ensures running with no command shows an error.
func TestCLINoCommand(t *testing.T) {
	out, _ := runCLI([]string{})
	if !strings.Contains(out, "Error: no command provided.") {
		t.Errorf("expected no command error, got:\n%s", out)
	}
}

// TestCLIUnknownCommand checks that an unknown command produces an error.
func TestCLIUnknownCommand(t *testing.T) {
	out, _ := runCLI([]string{"foobar"})
	if !strings.Contains(out, "unknown command: foobar") {
		t.Errorf("expected unknown command error, got:\n%s", out)
	}
}

// TestFlagOrderingSafe verifies the safeguard against flags after positional arguments.
func TestFlagOrderingSafe(t *testing.T) {
	out, _ := runCLI([]string{"migrate", "-database", "dummy"})
	expected := "Error: Flags must be specified before the command. Please reorder your arguments."
	if !strings.Contains(out, expected) {
		t.Errorf("expected flag ordering error, got:\n%s", out)
	}
}

// TestCLIConfigLoadError checks that a missing config file produces an error.
func TestCLIConfigLoadError(t *testing.T) {
	out, _ := runCLI([]string{"-driver", "sqlite3", "-database", "dummy", "-config", "nonexistent.json", "migrate"})
	if !strings.Contains(out, "Error loading config file:") {
		t.Errorf("expected config load error, got:\n%s", out)
	}
}

// TestCLIMissingDatabase checks that database-backed commands require a name.
func TestCLIMissingDatabase(t *testing.T) {
	out, _ := runCLI([]string{"migrate"}, "DB_NAME=")
	if !strings.Contains(out, "database name must be provided") {
		t.Errorf("expected missing database error, got:\n%s", out)
	}
}

// -----------------------------------------------------------------------------
// Subcommand tests against a temporary SQLite database
// -----------------------------------------------------------------------------

func TestCLIMigrateMake(t *testing.T) {
	migDir := filepath.Join(t.TempDir(), "migrations")
	out, err := runCLI([]string{"-pattern", filepath.Join(migDir, "*.sql"), "migrate:make", "add users"})
	if err != nil {
		t.Fatalf("migrate:make failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created migration:") {
		t.Errorf("expected creation message, got:\n%s", out)
	}
	files, _ := filepath.Glob(filepath.Join(migDir, "*_add-users.sql"))
	if len(files) != 1 {
		t.Fatalf("expected one scaffolded file, got %v", files)
	}
}

func TestCLIMigrateMakeRequiresName(t *testing.T) {
	out, _ := runCLI([]string{"migrate:make"})
	if !strings.Contains(out, "migration name is required") {
		t.Errorf("expected name-required error, got:\n%s", out)
	}
}

func TestCLIMigrateCycle(t *testing.T) {
	_, flags := newCLIFixture(t)

	out, err := runCLI(append(flags, "migrate"))
	if err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2025_01_01_00_00_create_users") || !strings.Contains(out, "Applied 1 change-set(s).") {
		t.Errorf("unexpected migrate output:\n%s", out)
	}

	out, err = runCLI(append(flags, "migrate:pending"))
	if err != nil {
		t.Fatalf("migrate:pending failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No pending migrations") {
		t.Errorf("expected no pending after migrate, got:\n%s", out)
	}

	out, err = runCLI(append(flags, "migrate:status"))
	if err != nil {
		t.Fatalf("migrate:status failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "applied") {
		t.Errorf("expected applied status, got:\n%s", out)
	}

	out, err = runCLI(append(flags, "query", "SELECT identifier FROM migrations"))
	if err != nil {
		t.Fatalf("query failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "identifier") || !strings.Contains(out, "1 row(s) returned") {
		t.Errorf("unexpected query output:\n%s", out)
	}

	out, err = runCLI(append(flags, "migrate:rollback"))
	if err != nil {
		t.Fatalf("migrate:rollback failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Rolled back 2025_01_01_00_00_create_users") {
		t.Errorf("unexpected rollback output:\n%s", out)
	}

	out, err = runCLI(append(flags, "migrate:rollback"))
	if err != nil {
		t.Fatalf("second migrate:rollback failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "No migrations to rollback") {
		t.Errorf("expected no-op rollback message, got:\n%s", out)
	}
}

func TestCLIPendingListsChangeSets(t *testing.T) {
	_, flags := newCLIFixture(t)
	out, err := runCLI(append(flags, "migrate:pending"))
	if err != nil {
		t.Fatalf("migrate:pending failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pending migrations (1):") || !strings.Contains(out, "2025_01_01_00_00_create_users") {
		t.Errorf("unexpected pending output:\n%s", out)
	}
}

func TestCLIFreshConfirmationMismatch(t *testing.T) {
	_, flags := newCLIFixture(t)
	if out, err := runCLI(append(flags, "migrate")); err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}

	out, err := runCLIStdin("not-the-database\n", append(flags, "migrate:fresh"))
	if err == nil {
		t.Fatalf("expected fresh to abort, got success:\n%s", out)
	}
	if !strings.Contains(out, "Aborted: confirmation does not match database name") {
		t.Errorf("expected abort message, got:\n%s", out)
	}
}

func TestCLIFreshConfirmed(t *testing.T) {
	_, flags := newCLIFixture(t)
	if out, err := runCLI(append(flags, "migrate")); err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}

	// The confirmation token is the -database value.
	dbPath := flags[3]
	out, err := runCLIStdin(dbPath+"\n", append(flags, "migrate:fresh"))
	if err != nil {
		t.Fatalf("migrate:fresh failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Database rebuilt: 1 change-set(s) applied.") {
		t.Errorf("unexpected fresh output:\n%s", out)
	}
}

func TestCLIQueryExec(t *testing.T) {
	_, flags := newCLIFixture(t)
	if out, err := runCLI(append(flags, "migrate")); err != nil {
		t.Fatalf("migrate failed: %v\n%s", err, out)
	}

	out, err := runCLI(append(flags, "query", "INSERT INTO users (email) VALUES ('a@example.com')"))
	if err != nil {
		t.Fatalf("query exec failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 row(s) affected") {
		t.Errorf("unexpected exec output:\n%s", out)
	}
}

func TestCLIQueryRequiresSQL(t *testing.T) {
	_, flags := newCLIFixture(t)
	out, _ := runCLI(append(flags, "query"))
	if !strings.Contains(out, "SQL query is required") {
		t.Errorf("expected query-required error, got:\n%s", out)
	}
}
