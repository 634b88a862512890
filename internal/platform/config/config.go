package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	DatabaseURL     string
	AdminSigningKey string
	RequestTimeout  time.Duration
	AutoSaveChanges bool
	AuditBuffer     int
	DefaultPageSize int
}

// Validate rejects configurations the server must not start with. There is
// no built-in signing key: an unset IDADMIN_ADMIN_SIGNING_KEY would let
// anyone mint admin tokens.
func (s Server) Validate() error {
	if s.AdminSigningKey == "" {
		return errors.New("IDADMIN_ADMIN_SIGNING_KEY is required")
	}
	return nil
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("IDADMIN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	timeout := 30 * time.Second
	if raw := os.Getenv("IDADMIN_REQUEST_TIMEOUT"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			timeout = duration
		}
	}

	autoSave := true
	if raw := os.Getenv("IDADMIN_AUTO_SAVE_CHANGES"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			autoSave = parsed
		}
	}

	auditBuffer := 256
	if raw := os.Getenv("IDADMIN_AUDIT_BUFFER"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			auditBuffer = parsed
		}
	}

	pageSize := 10
	if raw := os.Getenv("IDADMIN_DEFAULT_PAGE_SIZE"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}

	return Server{
		Addr:            addr,
		DatabaseURL:     os.Getenv("IDADMIN_DATABASE_URL"),
		AdminSigningKey: os.Getenv("IDADMIN_ADMIN_SIGNING_KEY"),
		RequestTimeout:  timeout,
		AutoSaveChanges: autoSave,
		AuditBuffer:     auditBuffer,
		DefaultPageSize: pageSize,
	}
}
