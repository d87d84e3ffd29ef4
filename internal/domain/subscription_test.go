package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in   string
		want Channel
	}{
		{"email", ChannelEmail},
		{"EMAIL", ChannelEmail},
		{"phone", ChannelPhone},
		{"Phone", ChannelPhone},
	}

	for _, tt := range tests {
		got, err := ParseChannel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	for _, in := range []string{"", "sms", "fax", "email "} {
		_, err := ParseChannel(in)
		assert.ErrorIs(t, err, ErrInvalidChannel, in)
	}
}

func TestTemplateConfigured(t *testing.T) {
	valid := "8d2c6c9f-0a7b-4d2e-9b3f-4c5d6e7f8a91"
	short := "abc"

	assert.True(t, TemplateConfigured(&valid))
	assert.False(t, TemplateConfigured(&short))
	assert.False(t, TemplateConfigured(nil))
}
