package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/narvanalabs/persistent-params/internal/auth"
)

const testSecret = "paramctl-test-secret-32-characters!"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--user", "ci", "--role", "builder", "--secret", testSecret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	svc := auth.NewService(&auth.Config{JWTSecret: []byte(testSecret), TokenExpiry: time.Hour}, nil)
	claims, err := svc.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("generated token does not validate: %v", err)
	}
	if claims.UserID != "ci" || claims.Role != auth.RoleBuilder {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := run(t, "token", "--role", "owner", "--secret", testSecret); err == nil {
		t.Error("unknown role should fail")
	}
	if _, err := run(t, "token", "--role", "admin", "--secret", "short"); err == nil {
		t.Error("short secret should fail")
	}
}

func TestImportDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	doc := "jobs:\n  - name: deploy\n    parameters:\n      - {type: persistentChoice, name: ENV, choices: [dev, prod]}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}

	out, err := run(t, "import", "--dry-run", path)
	if err != nil {
		t.Fatalf("import --dry-run: %v", err)
	}
	if !strings.Contains(out, "deploy\tfreestyle\t1 parameters") {
		t.Errorf("output = %q", out)
	}

	if err := os.WriteFile(path, []byte("jobs:\n  - kind: pipeline\n"), 0o600); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}
	if _, err := run(t, "import", "--dry-run", path); err == nil {
		t.Error("invalid jobs file should fail")
	}

	copied := "jobs:\n" +
		"  - name: a\n    parameters:\n      - {type: persistentString, name: V, token: 33333333-3333-3333-3333-333333333333}\n" +
		"  - name: b\n    parameters:\n      - {type: persistentString, name: V, token: 33333333-3333-3333-3333-333333333333}\n"
	if err := os.WriteFile(path, []byte(copied), 0o600); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}
	if _, err := run(t, "import", "--dry-run", path); err == nil {
		t.Error("jobs file reusing a parameter token should fail")
	}
}
