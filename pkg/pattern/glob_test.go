/*
Copyright © 2026 3 Leaps <info@3leaps.net>
*/
package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		glob, name string
		want       bool
	}{
		{"debian-*.iso", "debian-12.5.0-amd64.iso", true},
		{"debian-*.iso", "debian-12.5.0-amd64.iso.sig", false},
		{"*.iso", "ubuntu-24.04-desktop-amd64.iso", true},
		{"*.ISO", "image.iso", false},
		{"SHA256SUMS*", "SHA256SUMS", true},
		{"SHA256SUMS*", "SHA256SUMS.gpg", true},
		{"*CHECKSUM", "Fedora-Workstation-40-1.14-x86_64-CHECKSUM", true},
		{"alpine-standard-?.??.?-x86_64.iso", "alpine-standard-3.20.1-x86_64.iso", true},
		{"[a-c]*.img", "bookworm.img", true},
		{"[", "anything", false},
		{"", "anything", false},
	}

	for _, tc := range tests {
		t.Run(tc.glob+"|"+tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchGlob(tc.glob, tc.name))
		})
	}
}

func TestValidGlob(t *testing.T) {
	assert.True(t, ValidGlob("*.iso"))
	assert.False(t, ValidGlob("["))
	assert.False(t, ValidGlob("  "))
}
