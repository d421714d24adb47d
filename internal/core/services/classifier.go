package services

import (
	"strings"

	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

// defaultBlockedFragments lista assinaturas de clientes HTTP não-navegador,
// bibliotecas de script e crawlers/navegadores headless.
//
// É uma heurística de denylist: afasta abuso casual e clientes claramente
// automatizados, mas não é uma fronteira de segurança. Qualquer cliente pode
// falsificar o cabeçalho User-Agent.
var defaultBlockedFragments = []string{
	// clientes de linha de comando / ferramentas de API
	"curl", "wget", "httpie", "postman", "insomnia",
	// bibliotecas de script
	"python-requests", "python-urllib", "aiohttp", "httpx",
	"go-http-client", "okhttp", "java/", "apache-httpclient",
	"axios", "node-fetch", "undici", "libwww-perl", "ruby", "php/", "guzzle",
	// crawlers e navegadores headless
	"bot", "crawler", "spider", "scrapy",
	"headlesschrome", "phantomjs", "selenium", "puppeteer", "playwright",
}

// UserAgentClassifier é puro e sem I/O; seguro para rodar em toda requisição.
type UserAgentClassifier struct {
	fragments []string
}

var _ ports.Classifier = (*UserAgentClassifier)(nil)

var defaultClassifier = NewUserAgentClassifier()

// NewUserAgentClassifier usa a denylist padrão acrescida de extra.
func NewUserAgentClassifier(extra ...string) *UserAgentClassifier {
	fragments := make([]string, 0, len(defaultBlockedFragments)+len(extra))
	fragments = append(fragments, defaultBlockedFragments...)
	for _, f := range extra {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			fragments = append(fragments, f)
		}
	}
	return &UserAgentClassifier{fragments: fragments}
}

// IsDisallowed falha fechado: user-agent vazio é tratado como automatizado.
func (c *UserAgentClassifier) IsDisallowed(userAgent string) bool {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return true
	}
	for _, f := range c.fragments {
		if strings.Contains(ua, f) {
			return true
		}
	}
	return false
}

// IsDisallowedUserAgent classifica usando a denylist padrão.
func IsDisallowedUserAgent(userAgent string) bool {
	return defaultClassifier.IsDisallowed(userAgent)
}
