// Package testutil provides shared test helpers for golden file testing.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// Update is a flag that, when set, regenerates golden files from current output.
// Usage: go test ./... -update
var Update = flag.Bool("update", false, "update golden files")

// InputName is the spec file every golden directory starts from.
const InputName = "input.rb"

// TransformFunc turns the source of a spec file into the output under test,
// such as the autocorrected source or a rendered report.
type TransformFunc func(input string) string

// RunGolden reads dir/input.rb, applies fn, and compares the result against
// dir/expectedName.
func RunGolden(t *testing.T, dir, expectedName string, fn TransformFunc) {
	t.Helper()

	inputPath := filepath.Join(dir, InputName)
	expectedPath := filepath.Join(dir, expectedName)

	inputBytes, err := os.ReadFile(inputPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", inputPath, err)
	}

	actual := fn(string(inputBytes))

	if *Update {
		if err := os.WriteFile(expectedPath, []byte(actual), 0o644); err != nil {
			t.Fatalf("failed to update golden file %s: %v", expectedPath, err)
		}
		t.Logf("updated golden file: %s", expectedPath)
		return
	}

	expectedBytes, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", expectedPath, err)
	}

	if expected := string(expectedBytes); actual != expected {
		t.Errorf("output mismatch for %s:\n--- expected\n%s\n--- actual\n%s", expectedPath, expected, actual)
	}
}

// RunGoldenDir runs RunGolden as a subtest for every subdirectory of
// testdataDir. Directories without expectedName are skipped, so one tree can
// hold cases for several outputs.
func RunGoldenDir(t *testing.T, testdataDir, expectedName string, fn TransformFunc) {
	t.Helper()

	entries, err := os.ReadDir(testdataDir)
	if err != nil {
		t.Fatalf("failed to read testdata dir %s: %v", testdataDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(testdataDir, entry.Name())
		if !*Update {
			if _, err := os.Stat(filepath.Join(dir, expectedName)); err != nil {
				continue
			}
		}

		t.Run(entry.Name(), func(t *testing.T) {
			RunGolden(t, dir, expectedName, fn)
		})
	}
}
