package util

import (
	"net/http"
	"net/url"
)

// NewProxyFunc returns the transport proxy function for the configured proxy
// URLs, falling back to HTTP_PROXY/HTTPS_PROXY/NO_PROXY when both are empty.
func NewProxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
