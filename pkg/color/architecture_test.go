package color

import (
	"testing"

	"inked/testutil"
)

func TestColorIsSelfContained(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InternalImportForbidden, testutil.ThirdPartyImportForbidden),
		"color math is pure")
}
