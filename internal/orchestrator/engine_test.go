package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveInstanceIDIsDeterministic(t *testing.T) {
	label := []byte("Label 1")
	payload := []byte("ciphertext bytes")

	a := DeriveInstanceID(label, payload)
	b := DeriveInstanceID(label, payload)

	assert.Equal(t, a, b, "two nodes deriving the id from the same label+payload must agree")
}

func TestDeriveInstanceIDDiffersOnLabelOrPayload(t *testing.T) {
	base := DeriveInstanceID([]byte("Label 1"), []byte("payload"))

	diffLabel := DeriveInstanceID([]byte("Label 2"), []byte("payload"))
	assert.NotEqual(t, base, diffLabel)

	diffPayload := DeriveInstanceID([]byte("Label 1"), []byte("other payload"))
	assert.NotEqual(t, base, diffPayload)
}

func TestDeriveInstanceIDEmbedsLabelVerbatim(t *testing.T) {
	id := DeriveInstanceID([]byte("sign"), []byte("message"))
	assert.Contains(t, string(id), "sign ")
}
