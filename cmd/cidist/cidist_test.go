package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/configitems/modules/configitems/services"
)

const genderJSON = `{
  "name": "Gender",
  "label": "Gender",
  "versionStatus": "Live",
  "items": [
    {"item": "Male", "itemValue": 1},
    {"item": "Female", "itemValue": 2}
  ]
}`

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", filepath.Join(t.TempDir(), "cidist.db"))
	t.Setenv("LOG_LEVEL", "silent")
	t.Setenv("IMPORT_LOCK_BACKEND", "memory")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()
	var records []T
	dec := json.NewDecoder(strings.NewReader(out))
	for dec.More() {
		var r T
		require.NoError(t, dec.Decode(&r))
		records = append(records, r)
	}
	return records
}

func TestCLI_MigrateAndDetect(t *testing.T) {
	for _, layout := range []string{"legacy", "modern"} {
		t.Run(layout, func(t *testing.T) {
			setupEnv(t)

			_, err := run(t, "", "migrate", "--layout", layout)
			require.NoError(t, err)

			out, err := run(t, "", "detect")
			require.NoError(t, err)
			require.JSONEq(t, `{"layout":"`+layout+`","driver":"sqlite"}`, out)
		})
	}
}

func TestCLI_ImportLifecycle(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	out, err := run(t, genderJSON, "import", "-")
	require.NoError(t, err)
	dry := decodeLines[importRecord](t, out)
	require.Len(t, dry, 1)
	require.True(t, dry[0].DryRun)

	out, err = run(t, "", "versions", "--name", "Gender")
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = run(t, genderJSON, "import", "--apply", "-")
	require.NoError(t, err)
	applied := decodeLines[importRecord](t, out)
	require.Len(t, applied, 1)
	require.Equal(t, string(services.PathCreated), applied[0].Path)
	require.Equal(t, "Live", applied[0].Status)
	require.Equal(t, 2, applied[0].ItemsImported)

	_, err = run(t, "", "list", "add-item", "--name", "Gender", "--text", "Other", "--value", "3")
	require.Error(t, err)
	require.Equal(t, exitConflict, exitCode(err))
	require.Contains(t, err.Error(), "cannot be edited")

	out, err = run(t, "", "draft", applied[0].VersionID.String())
	require.NoError(t, err)
	draft := decodeLines[versionRecord](t, out)
	require.Len(t, draft, 1)
	require.Equal(t, "Draft", draft[0].Status)
	require.Equal(t, 2, draft[0].Items)

	_, err = run(t, "", "list", "add-item", "--name", "Gender", "--text", "Other", "--value", "3")
	require.NoError(t, err)

	_, err = run(t, "", "status", draft[0].ID.String(), "Ready")
	require.NoError(t, err)
	_, err = run(t, "", "status", draft[0].ID.String(), "Live")
	require.NoError(t, err)

	out, err = run(t, "", "versions", "--name", "Gender")
	require.NoError(t, err)
	versions := decodeLines[versionRecord](t, out)
	require.Len(t, versions, 2)
	require.Equal(t, "Retired", versions[0].Status)
	require.Equal(t, "Live", versions[1].Status)
	require.True(t, versions[1].IsLast)

	_, err = run(t, "", "list", "describe", "--name", "Gender", "--description", "fixed")
	require.Equal(t, exitConflict, exitCode(err))
	_, err = run(t, "", "list", "describe", "--name", "Gender", "--description", "fixed", "--data-fix")
	require.NoError(t, err)

	out, err = run(t, "", "export", "--name", "Gender")
	require.NoError(t, err)
	require.Contains(t, out, `"item": "Other"`)
	require.Contains(t, out, `"description": "fixed"`)

	_, err = run(t, "", "delete", "--name", "Gender", "--yes")
	require.NoError(t, err)
	out, err = run(t, "", "versions", "--name", "Gender")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCLI_ExportFormats(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)
	_, err = run(t, genderJSON, "import", "--apply", "--status", "Draft", "-")
	require.NoError(t, err)

	dir := t.TempDir()
	for _, file := range []string{"gender.yaml", "gender.toml", "gender.xlsx"} {
		_, err = run(t, "", "export", "--name", "Gender", "--output", filepath.Join(dir, "out", file))
		require.NoError(t, err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "out", "gender.toml"))
	require.NoError(t, err)
	require.Contains(t, string(b), `versionStatus = "Draft"`)

	// Importing the export replaces the pending draft, which was the only version.
	out, err := run(t, "", "import", "--apply", filepath.Join(dir, "out", "gender.toml"))
	require.NoError(t, err)
	records := decodeLines[importRecord](t, out)
	require.Len(t, records, 1)
	require.Equal(t, string(services.PathCreated), records[0].Path)
	require.Equal(t, 1, records[0].VersionNo)
	require.Equal(t, 1, records[0].Cancelled)
}

func TestExportFormat(t *testing.T) {
	cases := map[[2]string]string{
		{"", ""}:              "json",
		{"", "a/list.yml"}:    "yaml",
		{"", "a/list.XLSX"}:   "xlsx",
		{"TOML", "list.json"}: "toml",
	}
	for in, want := range cases {
		got, err := exportFormat(in[0], in[1])
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := exportFormat("csv", "")
	require.Error(t, err)
}

func TestCLI_ExitCodes(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	cases := []struct {
		name  string
		stdin string
		args  []string
		code  int
	}{
		{"bad layout", "", []string{"migrate", "--layout", "flat"}, exitUsage},
		{"bad status flag", "", []string{"import", "--status", "Published", "-"}, exitUsage},
		{"invalid payload", `{"label": "no name"}`, []string{"import", "--apply", "-"}, exitValidation},
		{"undecodable payload", `{not json`, []string{"import", "--format", "json", "-"}, exitValidation},
		{"missing file", "", []string{"import", filepath.Join(t.TempDir(), "missing.json")}, exitUsage},
		{"missing module", strings.Replace(genderJSON, `"label"`, `"moduleName": "Crm", "label"`, 1), []string{"import", "--apply", "-"}, exitMissingDependency},
		{"missing list", "", []string{"export", "--name", "Nope"}, exitUsage},
		{"delete needs confirmation", "", []string{"delete", "--name", "Gender"}, exitUsage},
		{"bad version id", "", []string{"cancel", "not-a-uuid"}, exitUsage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.stdin, tc.args...)
			require.Error(t, err)
			require.Equal(t, tc.code, exitCode(err))
		})
	}
}

func TestWithServiceCode(t *testing.T) {
	require.NoError(t, withServiceCode(nil))
	require.Equal(t, 1, exitCode(errors.New("plain")))
	require.Equal(t, exitDB, exitCode(withServiceCode(errors.New("connection reset"))))

	coded := withCode(exitUsage, errors.New("bad flag"))
	require.Equal(t, exitUsage, exitCode(withServiceCode(coded)))
}

func TestCLI_WritesMetricsTextfile(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cidist.prom")
	_, err = run(t, genderJSON, "--metrics-textfile", path, "import", "--apply", "-")
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "configitems_import_total")
}

func TestCLI_ModulesAndSuggestions(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "", "migrate")
	require.NoError(t, err)

	crm := strings.Replace(genderJSON, `"label"`, `"moduleName": "CRM", "label"`, 1)
	_, err = run(t, crm, "import", "--apply", "--create-modules", "-")
	require.NoError(t, err)

	out, err := run(t, "", "modules")
	require.NoError(t, err)
	mods := decodeLines[map[string]any](t, out)
	require.Len(t, mods, 1)
	require.Equal(t, "CRM", mods[0]["name"])

	typo := strings.Replace(genderJSON, `"label"`, `"moduleName": "Crn", "label"`, 1)
	_, err = run(t, typo, "import", "--apply", "-")
	require.Equal(t, exitMissingDependency, exitCode(err))
	require.Contains(t, err.Error(), `did you mean "CRM"?`)
}
