package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "203.0.0.0", AnonymizeIP("203.0.113.77"))
	assert.Equal(t, "2001:db8::1234:0", AnonymizeIP("2001:db8::1234:5678"))
	assert.Equal(t, "", AnonymizeIP("not-an-ip"))
	assert.Equal(t, "", AnonymizeIP(""))
}

func TestFingerprint(t *testing.T) {
	const ua = "Mozilla/5.0 Firefox/142.0"

	fp := Fingerprint("203.0.113.77", ua)
	assert.Len(t, fp, 32)
	assert.Equal(t, fp, Fingerprint("203.0.113.77", ua))

	// Anonymization happens before hashing, so addresses sharing a /16
	// fingerprint identically.
	assert.Equal(t, fp, Fingerprint("203.0.99.1", ua))

	assert.NotEqual(t, fp, Fingerprint("198.51.100.1", ua))
	assert.NotEqual(t, fp, Fingerprint("203.0.113.77", "other agent"))
}
