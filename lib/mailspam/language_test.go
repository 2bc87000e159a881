package mailspam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinguaDetector_IsTurkish(t *testing.T) {
	if testing.Short() {
		t.Skip("skip loading language models in short mode")
	}
	d := NewLinguaDetector(0.5)
	assert.True(t, d.IsTurkish("merhaba arkadaslar bugun toplanti saat ucte yapilacak lutfen gec kalmayin"))
	assert.False(t, d.IsTurkish("please join the meeting tomorrow at three o'clock in the main office"))
	assert.False(t, d.IsTurkish(""))
}
