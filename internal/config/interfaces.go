package config

import "context"

// SecretProvider resolves secret parameter paths to plaintext values.
// Missing keys are omitted from the result.
type SecretProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
