package util

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewProxyFunc returns a transport proxy function for the embedding clients.
// Explicit proxy URLs win over the environment; https requests prefer httpsProxy.
// With neither set the standard HTTP_PROXY/HTTPS_PROXY/NO_PROXY variables apply.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return parseProxy(httpsProxy)
		}
		if httpProxy != "" {
			return parseProxy(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	return u, nil
}
