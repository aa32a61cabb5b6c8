package config

import "github.com/joho/godotenv"

// LoadDotEnv reads .env files into the process environment.
// It does NOT override existing env vars (env takes precedence).
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
