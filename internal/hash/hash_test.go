package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	a := Key("https://www.usenix.org/conference/usenixsecurity26")
	b := Key("https://www.usenix.org/conference/usenixsecurity26")
	c := Key("https://www.usenix.org/conference/enigma2026")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, KeySize*2)
}

func TestSum(t *testing.T) {
	assert.Len(t, Sum([]byte("x")), 32)
}
