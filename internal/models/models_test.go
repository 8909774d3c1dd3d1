package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscordUserTag(t *testing.T) {
	assert.Equal(t, "jane#1234", DiscordUser{Username: "jane", Discriminator: "1234"}.Tag())
	assert.Equal(t, "jane", DiscordUser{Username: "jane", Discriminator: "0"}.Tag())
	assert.Equal(t, "jane", DiscordUser{Username: "jane"}.Tag())
}
