package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWebhookURL(t *testing.T) {
	assert.NoError(t, validateWebhookURL("https://hooks.example.com/notify"))

	cases := []string{
		"http://hooks.example.com/notify",
		"https://localhost/notify",
		"https://127.0.0.1/notify",
		"https://10.0.0.5/notify",
		"https://192.168.1.5/notify",
		"not-a-url",
	}
	for _, raw := range cases {
		assert.Error(t, validateWebhookURL(raw), raw)
	}
}
