package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc returns the proxy selector for outbound model traffic. With no
// proxy configured it defers to the environment. HTTPS traffic falls back to
// the HTTP proxy, and unset fields are filled from HTTP_PROXY and NO_PROXY.
// noProxy follows the NO_PROXY syntax: a bare domain also covers its
// subdomains, a leading dot covers subdomains only, and loopback hosts always
// connect directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	env := httpproxy.FromEnvironment()
	cfg := httpproxy.Config{
		HTTPProxy:  firstSet(httpProxy, env.HTTPProxy),
		HTTPSProxy: firstSet(httpsProxy, httpProxy),
		NoProxy:    firstSet(noProxy, env.NoProxy),
	}
	proxy := cfg.ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
