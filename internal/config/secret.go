package config

import (
	"strings"
	"sync/atomic"
)

// SecretStore guarda el secreto de firma de tokens. Se consulta en cada uso,
// de modo que una rotacion o una configuracion tardia se observan sin reiniciar.
type SecretStore struct {
	value atomic.Value
}

func NewSecretStore(secret string) *SecretStore {
	s := &SecretStore{}
	s.Set(secret)
	return s
}

// SigningSecret devuelve el secreto actual o "" si no esta configurado.
func (s *SecretStore) SigningSecret() string {
	if s == nil {
		return ""
	}
	v, _ := s.value.Load().(string)
	return v
}

// Set reemplaza el secreto actual.
func (s *SecretStore) Set(secret string) {
	s.value.Store(strings.TrimSpace(secret))
}

// Reload vuelve a leer la configuracion y actualiza el secreto. Devuelve true
// si el valor cambio.
func (s *SecretStore) Reload(load func() (*Config, error)) (bool, error) {
	cfg, err := load()
	if err != nil {
		return false, err
	}
	previous := s.SigningSecret()
	s.Set(cfg.JWTSecret)
	return previous != s.SigningSecret(), nil
}
