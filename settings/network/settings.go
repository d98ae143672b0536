// Package network parses TCP/TLS endpoint configuration out of a URI, the
// way the teacher's settings package lets a deployment describe an endpoint
// as a single connection string instead of a struct literal.
package network

import (
	"net/url"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/modbuscore/gomodbus/transport"
	"go.uber.org/zap"
)

// ClientSettings configures a TCP or TLS dial. Endpoint is "host:port";
// Scheme is the URI scheme the settings were parsed from ("tcp" or "tls").
type ClientSettings struct {
	Scheme          string
	Endpoint        string
	DialTimeout     time.Duration
	ResponseTimeout time.Duration
	KeepAlive       time.Duration
}

// ServerSettings configures a TCP or TLS listen address.
type ServerSettings struct {
	Scheme    string
	Endpoint  string
	KeepAlive time.Duration
}

// NewClientSettingsFromURI parses a "tcp://host:port?dialTimeout=5s&responseTimeout=1s&keepAlive=30s" URI.
func NewClientSettingsFromURI(uri string) (*ClientSettings, error) {
	u, err := parseEndpointURI(uri)
	if err != nil {
		return nil, err
	}
	s := &ClientSettings{Scheme: u.Scheme, Endpoint: u.Host}
	if err := parseDuration(u, "dialTimeout", &s.DialTimeout, 5*time.Second); err != nil {
		return nil, err
	}
	if err := parseDuration(u, "responseTimeout", &s.ResponseTimeout, 1*time.Second); err != nil {
		return nil, err
	}
	if err := parseDuration(u, "keepAlive", &s.KeepAlive, 30*time.Second); err != nil {
		return nil, err
	}
	return s, nil
}

// NewServerSettingsFromURI parses a "tcp://host:port?keepAlive=30s" URI.
func NewServerSettingsFromURI(uri string) (*ServerSettings, error) {
	u, err := parseEndpointURI(uri)
	if err != nil {
		return nil, err
	}
	s := &ServerSettings{Scheme: u.Scheme, Endpoint: u.Host}
	if err := parseDuration(u, "keepAlive", &s.KeepAlive, 30*time.Second); err != nil {
		return nil, err
	}
	return s, nil
}

// Dialer builds the plain TCP transport.Dialer these settings describe. A
// "tls" scheme still needs a *tls.Config from the caller, supplied directly
// to transport.TLSDialer rather than through this helper.
func (c *ClientSettings) Dialer(logger *zap.Logger, level common.PhysDecodeLevel) *transport.TCPDialer {
	return &transport.TCPDialer{Endpoint: c.Endpoint, Logger: logger, Level: level}
}

func parseEndpointURI(uri string) (*url.URL, error) {
	if uri == "" {
		return nil, common.ErrURIIsNil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "tcp" && u.Scheme != "tls" {
		return nil, common.ErrInvalidScheme
	}
	return u, nil
}

func parseDuration(u *url.URL, field string, out *time.Duration, def time.Duration) error {
	v := u.Query().Get(field)
	if v == "" {
		*out = def
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*out = d
	return nil
}
