// Package middleware contributes the system middleware units and the
// factories available to plugin manifests.
//
// Priorities: realip 5, requestid 10, accesslog 20, metrics 30, ratelimit 40.
// realip is installed only with server.trust_proxy_headers, otherwise any
// client could pick its own address and with it its rate limit key.
package middleware
