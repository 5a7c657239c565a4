package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() HubConfig {
	return HubConfig{
		ServiceName:            "collab-hub",
		HTTPPort:               "8090",
		TokenSecret:            "secret",
		DatabaseURI:            "file::memory:",
		PresenceLivenessWindow: 5 * time.Minute,
		RateLimitWindow:        time.Minute,
		RateLimitMaxEvents:     30,
		BackboneTopicURI:       "mem://room.broadcast",
		BackboneSubscriptionURI: "mem://room.broadcast",
		ConnectionSendBuffer:   256,
		MaxMessageLength:       4096,
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingSecret(t *testing.T) {
	cfg := validConfig()
	cfg.TokenSecret = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TokenSecret")
}

func TestValidate_BadRateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimitWindow = 0
	cfg.RateLimitMaxEvents = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RateLimitWindow")
	assert.Contains(t, err.Error(), "RateLimitMaxEvents")
}

func TestValidate_BackboneURIOnlyCheckedWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.BackboneTopicURI = "bogus://x"
	require.NoError(t, cfg.Validate())

	cfg.BackboneEnabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BackboneTopicURI")
}

func TestValidateQueueURI(t *testing.T) {
	assert.NoError(t, validateQueueURI("mem://a", "X"))
	assert.NoError(t, validateQueueURI("nats://host/subj", "X"))
	assert.Error(t, validateQueueURI("", "X"))
	assert.Error(t, validateQueueURI("http://nope", "X"))
}
