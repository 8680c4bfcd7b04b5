package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"catalogenum/internal/catalog"
)

const sampleCatalog = `{"version":1,"item_count":2,"items":[{"item_id":5,"name":"Iron Sword"},{"item_id":6,"name":"0"}]}`

func writeCatalog(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "items.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func noEnv(string) string { return "" }

func TestRunWritesStdout(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-catalog", path, "-indent", "2"}, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	if got, want := stdout.String(), "enum eItems {\n  IRON_SWORD = 5,\n};\n"; got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
	if !strings.Contains(stderr.String(), "catalog loaded") {
		t.Fatalf("expected structured log line, got %q", stderr.String())
	}
}

func TestRunPublishCheckIndexAndMetrics(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	out := filepath.Join(dir, "gen", "items.h")
	dbPath := filepath.Join(dir, "index.db")
	prom := filepath.Join(dir, "catalogenum.prom")
	ctx := context.Background()

	args := []string{
		"-catalog", path,
		"-out", out,
		"-index-driver", "sqlite",
		"-index-dsn", dbPath,
		"-metrics-textfile", prom,
		"-log-level", "error",
	}
	var stdout, stderr bytes.Buffer
	if err := run(ctx, args, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Fatalf("expected no output, got stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(written) != "enum eItems {\n    IRON_SWORD = 5,\n};\n" {
		t.Fatalf("unexpected output %q", written)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer func() { _ = db.Close() }()
	var rows, emitted int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(emitted), 0) FROM catalog_items`).Scan(&rows, &emitted); err != nil {
		t.Fatalf("query index: %v", err)
	}
	if rows != 2 || emitted != 1 {
		t.Fatalf("index rows=%d emitted=%d, want 2/1", rows, emitted)
	}

	metricsText, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	for _, want := range []string{"catalogenum_items_skipped 1", "catalogenum_last_success_timestamp_seconds"} {
		if !strings.Contains(string(metricsText), want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	checkArgs := []string{"-catalog", path, "-out", out, "-check", "-log-level", "error"}
	if err := run(ctx, checkArgs, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("check on fresh output: %v", err)
	}

	writeCatalog(t, dir, `{"items":[{"item_id":5,"name":"Iron Sword"},{"item_id":7,"name":"Bow"}]}`)
	err = run(ctx, append(checkArgs, "-metrics-textfile", prom), noEnv, &stdout, &stderr)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	metricsText, err = os.ReadFile(prom)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(metricsText), `catalogenum_generation_failures_total{stage="check"} 1`) {
		t.Fatalf("check failure not recorded:\n%s", metricsText)
	}
}

func TestRunCheckMissingOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{"-catalog", path, "-out", filepath.Join(dir, "none.h"), "-check"}, noEnv, &stdout, &stderr)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	err = run(context.Background(), []string{"-catalog", path, "-check"}, noEnv, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "-check needs -out") {
		t.Fatalf("expected -out requirement, got %v", err)
	}
}

func TestRunUsesEnvironmentSink(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	root := filepath.Join(dir, "headers")
	env := map[string]string{
		"CATALOGENUM_CATALOG":      path,
		"CATALOGENUM_OUT":          "game/items.h",
		"CATALOGENUM_BLOB_DRIVER":  "fs",
		"CATALOGENUM_BLOB_FS_ROOT": root,
		"CATALOGENUM_INDEX_DRIVER": "memory",
		"CATALOGENUM_LOG_LEVEL":    "warn",
	}
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), nil, func(k string) string { return env[k] }, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "game", "items.h")); err != nil {
		t.Fatalf("expected output under blob root: %v", err)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeCatalog(t, dir, sampleCatalog)
	folder := filepath.Join(dir, "folder.json")
	if err := os.Mkdir(folder, 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	txt := filepath.Join(dir, "catalog.txt")
	if err := os.WriteFile(txt, []byte(sampleCatalog), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cases := []struct {
		name string
		args []string
		want error
		msg  string
	}{
		{name: "wrong extension", args: []string{"-catalog", txt}, want: catalog.ErrInvalidFileType},
		{name: "missing catalog", args: []string{"-catalog", filepath.Join(dir, "missing.json")}, want: catalog.ErrNotFound},
		{name: "directory", args: []string{"-catalog", folder}, want: catalog.ErrNotAFile},
		{name: "unknown blob driver", args: []string{"-catalog", good, "-out", "x.h"}, msg: "unknown blob driver"},
		{name: "unknown index driver", args: []string{"-catalog", good, "-index-driver", "mongo"}, msg: "unknown index driver"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := map[string]string{}
			if tc.name == "unknown blob driver" {
				env["CATALOGENUM_BLOB_DRIVER"] = "ftp"
			}
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tc.args, func(k string) string { return env[k] }, &stdout, &stderr)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if tc.msg != "" && !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected %q in %v", tc.msg, err)
			}
		})
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-h"}, noEnv, &stdout, &stderr); err != nil {
		t.Fatalf("help should not fail: %v", err)
	}
	if !strings.Contains(stderr.String(), "-catalog") {
		t.Fatalf("expected usage, got %q", stderr.String())
	}
}

func TestExitErr(t *testing.T) {
	prev := exitFunc
	defer func() { exitFunc = prev }()
	code := -1
	exitFunc = func(c int) { code = c }

	exitErr(nil)
	if code != -1 {
		t.Fatalf("nil error should not exit")
	}
	exitErr(errors.New("boom"))
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestMainExitsOnFailure(t *testing.T) {
	prevExit, prevArgs := exitFunc, os.Args
	defer func() { exitFunc, os.Args = prevExit, prevArgs }()
	code := 0
	exitFunc = func(c int) { code = c }
	t.Setenv("CATALOGENUM_ENV_FILE", "")
	os.Args = []string{"catalogenum", "-catalog", filepath.Join(t.TempDir(), "missing.json")}

	main()
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}
