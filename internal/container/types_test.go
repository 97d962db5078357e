package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindASEC: "asec",
		KindOBB:  "obb",
		KindISO:  "iso",
		Kind(99): "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
