package aggregate

import (
	"testing"

	"genecatalog/testutil"
)

func TestAggregateIsPure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(testutil.ModuleImport("genecatalog/pkg/domain"), testutil.ThirdPartyImport), "aggregations work on records only")
}
