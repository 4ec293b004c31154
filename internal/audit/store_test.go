package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNullableString(t *testing.T) {
	t.Parallel()

	assert.Nil(t, nullableString(""))
	assert.Equal(t, "x", nullableString("x"))
}

func TestNonNilSlice(t *testing.T) {
	t.Parallel()

	var nilSlice []int
	got := nonNilSlice(nilSlice)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	populated := []int{1, 2}
	assert.Equal(t, populated, nonNilSlice(populated))
}
