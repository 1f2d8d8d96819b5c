package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer SetLogger(orig)

	var captured string
	SetLogger(func(format string, v ...any) {
		captured = fmt.Sprintf(format, v...)
	})
	Logf("reading rejected: %s", "accuracy")
	assert.Equal(t, "reading rejected: accuracy", captured)

	// nil installs a no-op logger rather than panicking.
	SetLogger(nil)
	Logf("dropped %d", 1)
	assert.Equal(t, "reading rejected: accuracy", captured)
}
