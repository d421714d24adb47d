package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDisallowedUserAgent(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      bool
	}{
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"curl", "curl/8.4.0", true},
		{"wget", "Wget/1.21.4", true},
		{"python requests", "python-requests/2.31.0", true},
		{"go client", "Go-http-client/1.1", true},
		{"postman", "PostmanRuntime/7.36.0", true},
		{"googlebot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true},
		{"headless chrome", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/120.0.0.0 Safari/537.36", true},
		{"firefox windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0", false},
		{"chrome windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", false},
		{"safari iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDisallowedUserAgent(tt.userAgent))
		})
	}
}

func TestUserAgentClassifier_IsDeterministic(t *testing.T) {
	c := NewUserAgentClassifier()
	for _, ua := range []string{"", "curl/8.4.0", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"} {
		first := c.IsDisallowed(ua)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, c.IsDisallowed(ua), "classification of %q changed", ua)
		}
	}
}

func TestUserAgentClassifier_ExtraFragments(t *testing.T) {
	ua := "Mozilla/5.0 (Windows NT 10.0) InternalScanner/2.0"

	assert.False(t, NewUserAgentClassifier().IsDisallowed(ua))

	c := NewUserAgentClassifier(" InternalScanner ", "", "  ")
	assert.True(t, c.IsDisallowed(ua))
	assert.True(t, c.IsDisallowed("curl/8.4.0"), "defaults must still apply")
}
