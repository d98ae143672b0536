package transport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/modbuscore/gomodbus/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func pemEncode(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func generateSelfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	assert.NoError(t, err)

	cert, err := tls.X509KeyPair(
		pemEncode("CERTIFICATE", der),
		pemEncode("RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key)),
	)
	assert.NoError(t, err)
	return cert
}

func TestTLSListenerDialerReadWriteRoundTrip(t *testing.T) {
	cert := generateSelfSignedCert(t)
	serverConfig := &tls.Config{Certificates: []tls.Certificate{cert}}

	listener, err := ListenTLS("127.0.0.1:0", serverConfig, zap.NewNop(), common.PhysDecodeNothing)
	assert.NoError(t, err)
	defer listener.Close()

	clientConfig := &tls.Config{InsecureSkipVerify: true}
	dialer := &TLSDialer{Endpoint: listener.listener.Addr().String(), Config: clientConfig, Logger: zap.NewNop(), Level: common.PhysDecodeNothing}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	acceptedCh := make(chan Transport, 1)
	go func() {
		conn, err := listener.Accept(ctx)
		if err == nil {
			acceptedCh <- conn
		}
	}()

	client, err := dialer.Dial(ctx)
	assert.NoError(t, err)
	defer client.Close()

	server := <-acceptedCh
	defer server.Close()

	assert.NoError(t, client.Write(ctx, []byte("ping")))
	buf := make([]byte, 4)
	n, err := server.Read(ctx, buf)
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "ping", string(buf))
}

func TestTLSDialerRejectsUntrustedCert(t *testing.T) {
	cert := generateSelfSignedCert(t)
	serverConfig := &tls.Config{Certificates: []tls.Certificate{cert}}

	listener, err := ListenTLS("127.0.0.1:0", serverConfig, zap.NewNop(), common.PhysDecodeNothing)
	assert.NoError(t, err)
	defer listener.Close()

	dialer := &TLSDialer{Endpoint: listener.listener.Addr().String(), Config: &tls.Config{}, Logger: zap.NewNop(), Level: common.PhysDecodeNothing}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go listener.Accept(ctx)

	_, err = dialer.Dial(ctx)
	var ioErr *common.IoError
	assert.ErrorAs(t, err, &ioErr)
}
