package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsHas(t *testing.T) {
	f := FlagProvidesASEC | FlagEncryptable
	assert.True(t, f.Has(FlagProvidesASEC))
	assert.True(t, f.Has(FlagEncryptable))
	assert.False(t, f.Has(FlagNonRemovable))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Mounted", StateMounted.String())
	assert.Equal(t, "Unknown(99)", State(99).String())
}
