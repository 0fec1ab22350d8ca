package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestParseTierProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parse accepts exactly the fixed tier set", prop.ForAll(
		func(s string) bool {
			tier, err := ParseTier(s)
			if Tier(s).IsValid() {
				return err == nil && tier == Tier(s)
			}
			return err != nil && tier == ""
		},
		gen.OneGenOf(gen.AnyString(), gen.OneConstOf("5", "10", "20")),
	))

	properties.TestingRun(t)
}
