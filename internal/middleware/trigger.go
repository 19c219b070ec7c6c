// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TriggerAuth validates the origin of external trigger calls. The caller
// presents the shared secret as "Authorization: Bearer <secret>" or in the
// X-Trigger-Secret header. The secret is checked against a plain value in
// constant time, or against a bcrypt hash.
type TriggerAuth struct {
	Secret string
	Hash   string
	// AllowOpen lets requests through when neither secret nor hash is
	// configured. Only development sets it.
	AllowOpen bool
}

// Middleware enforces the trigger secret.
func (a TriggerAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Secret == "" && a.Hash == "" {
			if a.AllowOpen {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "trigger secret not configured")
			return
		}

		presented := presentedSecret(r)
		if presented == "" || !a.valid(presented) {
			slog.Warn("trigger rejected", "path", r.URL.Path, "remote", clientIP(r))
			w.Header().Set("WWW-Authenticate", `Bearer realm="trigger"`)
			writeError(w, http.StatusUnauthorized, "invalid trigger secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a TriggerAuth) valid(presented string) bool {
	if a.Secret != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(a.Secret)) == 1 {
		return true
	}
	if a.Hash != "" && bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(presented)) == nil {
		return true
	}
	return false
}

func presentedSecret(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Trigger-Secret"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
