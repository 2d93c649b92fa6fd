package server

import (
	"crypto/tls"

	"github.com/pkg/errors"
)

// LoadTLSConfig returns the TLS settings for cfg, or nil when cfg asks for a
// plain listener.
func LoadTLSConfig(cfg Config) (*tls.Config, error) {
	if !cfg.TLSEnabled() {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load key pair (cert %s, key %s)", cfg.CertFile, cfg.KeyFile)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
