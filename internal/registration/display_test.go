package registration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "01712*****", MaskPhone("01712345678"))
	assert.Equal(t, "0171", MaskPhone("0171"))
	assert.Equal(t, "", MaskPhone(""))
}

func TestRemainingSeconds(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	assert.Equal(t, 60, RemainingSeconds(now.Add(time.Minute), now))
	assert.Equal(t, 0, RemainingSeconds(now.Add(-time.Second), now))
	assert.Equal(t, 0, RemainingSeconds(time.Time{}, now))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "0:00", FormatRemaining(0))
	assert.Equal(t, "0:09", FormatRemaining(9))
	assert.Equal(t, "1:00", FormatRemaining(60))
	assert.Equal(t, "4:59", FormatRemaining(299))
	assert.Equal(t, "0:00", FormatRemaining(-3))
}
