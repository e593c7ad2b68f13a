// Package audit writes one structured record per CLI command so operators
// can see which configuration a run used. Secrets are reported as "set" or
// "unset", and database DSNs have their password masked.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// kind says how an env var's value may appear in the log.
type kind int

const (
	plain kind = iota
	secret
	dsn
)

// auditEntry defines an env var to include in the audit log.
type auditEntry struct {
	key  string
	kind kind
}

// auditKeys is the ordered list of env vars included in every audit record.
var auditKeys = []auditEntry{
	{"MODEL_PROVIDER", plain},
	{"OPENAI_API_KEY", secret},
	{"OPENAI_MODEL", plain},
	{"AZURE_OPENAI_API_KEY", secret},
	{"AZURE_OPENAI_ENDPOINT", plain},
	{"AZURE_OPENAI_DEPLOYMENT", plain},
	{"OLLAMA_HOST", plain},
	{"OLLAMA_MODEL", plain},
	{"GOOGLE_API_KEY", secret},
	{"GEMINI_MODEL", plain},
	{"ARK_API_KEY", secret},
	{"ARK_MODEL", plain},
	{"EMBEDDING_PROVIDER", plain},
	{"EMBEDDING_MODEL", plain},
	{"EMBEDDING_API_KEY", secret},
	{"EMBEDDING_CACHE", plain},
	{"VECTOR_BACKEND", plain},
	{"VECTOR_COLLECTION", plain},
	{"CHROMA_URL", plain},
	{"QDRANT_HOST", plain},
	{"QDRANT_PORT", plain},
	{"QDRANT_API_KEY", secret},
	{"DB_DRIVER", plain},
	{"DATABASE_URL", dsn},
	{"DB_HOST", plain},
	{"DB_USERNAME", plain},
	{"DB_PASSWORD", secret},
	{"DB_NAME", plain},
	{"FRONTEND_URL_NEXT", plain},
	{"IMAGE_BASE_URL", plain},
	{"SHOPAI_API_KEY", secret},
	{"SHOPAI_HISTORY_DB", plain},
	{"LOG_LEVEL", plain},
	{"LOG_FORMAT", plain},
	{"LANGFUSE_PUBLIC_KEY", secret},
	{"LANGFUSE_SECRET_KEY", secret},
}

// LogCommandStart emits the audit record for a CLI command.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}
	for _, e := range auditKeys {
		attrs = append(attrs, slog.String(e.key, sanitise(e.kind, os.Getenv(e.key))))
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns the log-safe form of an env var value. Unknown keys
// are treated as plain.
func SanitiseKey(key, value string) string {
	for _, e := range auditKeys {
		if e.key == key {
			return sanitise(e.kind, value)
		}
	}
	return valOrUnset(value)
}

func sanitise(k kind, v string) string {
	switch k {
	case secret:
		return presence(v)
	case dsn:
		return valOrUnset(redactDSN(v))
	default:
		return valOrUnset(v)
	}
}

// redactDSN masks the password in URL-style (postgres://u:p@h/db) and
// MySQL-style (u:p@tcp(h)/db) connection strings.
func redactDSN(v string) string {
	at := strings.LastIndex(v, "@")
	if at < 0 {
		return v
	}
	start := 0
	if i := strings.Index(v, "://"); i >= 0 && i < at {
		start = i + 3
	}
	colon := strings.Index(v[start:at], ":")
	if colon < 0 {
		return v
	}
	return v[:start+colon+1] + "***" + v[at:]
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
