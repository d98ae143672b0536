package network

import (
	"testing"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/stretchr/testify/assert"
)

func TestNewClientSettingsFromURIAppliesDefaults(t *testing.T) {
	s, err := NewClientSettingsFromURI("tcp://192.168.1.10:502")
	assert.NoError(t, err)
	assert.Equal(t, "tcp", s.Scheme)
	assert.Equal(t, "192.168.1.10:502", s.Endpoint)
	assert.Equal(t, 5*time.Second, s.DialTimeout)
	assert.Equal(t, 1*time.Second, s.ResponseTimeout)
	assert.Equal(t, 30*time.Second, s.KeepAlive)
}

func TestNewClientSettingsFromURIParsesQueryOptions(t *testing.T) {
	s, err := NewClientSettingsFromURI("tls://host:802?dialTimeout=2s&responseTimeout=500ms&keepAlive=1m")
	assert.NoError(t, err)
	assert.Equal(t, "tls", s.Scheme)
	assert.Equal(t, 2*time.Second, s.DialTimeout)
	assert.Equal(t, 500*time.Millisecond, s.ResponseTimeout)
	assert.Equal(t, time.Minute, s.KeepAlive)
}

func TestNewClientSettingsFromURIRejectsEmptyURI(t *testing.T) {
	_, err := NewClientSettingsFromURI("")
	assert.ErrorIs(t, err, common.ErrURIIsNil)
}

func TestNewClientSettingsFromURIRejectsInvalidScheme(t *testing.T) {
	_, err := NewClientSettingsFromURI("udp://host:502")
	assert.ErrorIs(t, err, common.ErrInvalidScheme)
}

func TestNewClientSettingsFromURIRejectsInvalidDuration(t *testing.T) {
	_, err := NewClientSettingsFromURI("tcp://host:502?dialTimeout=notaduration")
	assert.Error(t, err)
}

func TestNewServerSettingsFromURI(t *testing.T) {
	s, err := NewServerSettingsFromURI("tcp://0.0.0.0:502?keepAlive=45s")
	assert.NoError(t, err)
	assert.Equal(t, "0.0.0.0:502", s.Endpoint)
	assert.Equal(t, 45*time.Second, s.KeepAlive)
}

func TestClientSettingsDialerUsesEndpoint(t *testing.T) {
	s, err := NewClientSettingsFromURI("tcp://10.0.0.1:502")
	assert.NoError(t, err)
	d := s.Dialer(nil, common.PhysDecodeNothing)
	assert.Equal(t, "10.0.0.1:502", d.Endpoint)
}
