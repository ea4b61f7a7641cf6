package domain

import (
	"testing"

	"inked/testutil"
)

// TestDomainDoesNotImportInternal keeps the domain layer free of internal
// implementation packages so storage drivers and services can depend on it
// without cycles.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InternalImportForbidden, testutil.ThirdPartyImportForbidden),
		"domain depends on the standard library only")
}
