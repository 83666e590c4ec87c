package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnion(t *testing.T) {
	got := Union([]string{"bob", "", "carol"}, []string{"carol", "dave"}, nil)
	assert.Equal(t, []string{"bob", "carol", "dave"}, got)
	assert.Empty(t, Union[string]())
}
