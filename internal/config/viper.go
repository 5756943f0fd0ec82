// Package config resolves settings and credentials from viper and the
// process environment.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/agentstation/skinmap/pkg/errors"
)

// GetString returns a value from viper, falling back to the OS environment
// when viper has nothing for the key.
func GetString(key string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return os.Getenv(key)
}

// APIKey returns the first non-empty credential among names. Each name is
// looked up as given and lower-cased in viper, then in the environment.
func APIKey(names ...string) (string, error) {
	for _, name := range names {
		for _, key := range []string{name, strings.ToLower(name)} {
			if v := strings.TrimSpace(GetString(key)); v != "" {
				return v, nil
			}
		}
	}
	return "", errors.NewConfigError("credentials",
		"none of "+strings.Join(names, ", ")+" is set", errors.ErrCredentialsMissing)
}

// HasAPIKey reports whether any of names resolves to a credential.
func HasAPIKey(names ...string) bool {
	_, err := APIKey(names...)
	return err == nil
}
