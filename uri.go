package svcrun

import (
	"fmt"
	"net/url"
	"strings"
)

// ServiceURI builds addresses for a managed service's HTTP API. Components
// that talk to a service derive every request URL from one of these rather
// than concatenating strings ad hoc.
type ServiceURI struct {
	// Scheme is the URL scheme; defaulted to "http"
	Scheme string
	// Host is the service address
	Host string
	// Port is the service listen port
	Port int
	// Prefix is an optional path prefix mounted in front of every route
	Prefix string
}

// NewServiceURI returns a ServiceURI for a host and port with the default
// scheme and no prefix.
func NewServiceURI(host string, port int) *ServiceURI {
	return &ServiceURI{Scheme: "http", Host: host, Port: port}
}

// BaseURL returns the service's root URL without a trailing slash.
func (u *ServiceURI) BaseURL() string {
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	base := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", u.Host, u.Port),
		Path:   u.Prefix,
	}
	return strings.TrimRight(base.String(), "/")
}

// Route returns the absolute URL for a path under the service.
func (u *ServiceURI) Route(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return u.BaseURL() + path
}
