package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingTB struct {
	testing.TB
	failed bool
	msg    string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.msg = format
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred ImportPredicate
		in   string
		want bool
	}{
		{"internal", InternalImportForbidden, "inked/internal/core", true},
		{"internal root", InternalImportForbidden, "inked/internal", true},
		{"internal pkg", InternalImportForbidden, "inked/pkg/domain", false},
		{"infra", InfraImportForbidden, "inked/internal/infra/persistence/memory", true},
		{"infra blob facade", InfraImportForbidden, "inked/internal/blob", false},
		{"third party", ThirdPartyImportForbidden, "github.com/rs/zerolog", true},
		{"third party x", ThirdPartyImportForbidden, "golang.org/x/sync/errgroup", true},
		{"stdlib", ThirdPartyImportForbidden, "net/http", false},
		{"module", ThirdPartyImportForbidden, "inked/pkg/color", false},
		{"any of", AnyOf(InfraImportForbidden, ThirdPartyImportForbidden), "gopkg.in/yaml.v3", true},
		{"any of none", AnyOf(), "fmt", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s: pred(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func TestAssertNoDirectImportsIgnoresTestsAndSubdirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package tmp\nimport \"fmt\"\nfunc X() { fmt.Println(1) }\n")
	writeFile(t, dir, "main_test.go", "package tmp\nimport \"github.com/stretchr/testify/assert\"\nvar _ = assert.True\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "sub.go", "package sub\nimport \"github.com/rs/zerolog\"\nvar _ zerolog.Level\n")

	AssertNoDirectImports(t, dir, ThirdPartyImportForbidden, "stdlib only")
}

func TestAssertNoDirectImportsReportsViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.go", "package tmp\nimport _ \"inked/internal/infra/blob/s3\"\n")

	rec := &recordingTB{}
	AssertNoDirectImports(rec, dir, InfraImportForbidden, "no drivers")
	if !rec.failed {
		t.Fatalf("expected violation to fail the test")
	}
}

func TestAssertNoDirectImportsParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.go", "package tmp\nimport (\n")

	rec := &recordingTB{}
	AssertNoDirectImports(rec, dir, InfraImportForbidden, "parse")
	if !rec.failed {
		t.Fatalf("expected parse error to fail the test")
	}
}
