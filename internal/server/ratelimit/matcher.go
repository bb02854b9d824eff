package ratelimit

import "strings"

// unlimited is returned for routes that are never throttled
var unlimited = &EndpointConfig{}

// MatchEndpoint returns the budget for a request, preferring an exact path
// over a prefix. Health checks are unlimited; nil means use the default.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == "/health" {
		return unlimited
	}

	var prefix *EndpointConfig
	for i := range configs {
		c := &configs[i]
		if c.Method != method {
			continue
		}
		if c.Path == path {
			return c
		}
		if prefix == nil && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			prefix = c
		}
	}
	return prefix
}
