package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultSecretsURL is the community-maintained registry of versioned,
// obfuscated code-generation secrets.
const DefaultSecretsURL = "https://git.gay/thereallo/totp-secrets/raw/branch/main/secrets/secretDict.json"

// Secret is one versioned obfuscated code-generation secret.
type Secret struct {
	Version int
	Data    []int
}

// SecretRegistry supplies the current code-generation secret. It is an
// explicit dependency of the Client so tests can substitute a fixed
// registry.
type SecretRegistry interface {
	// Latest returns the secret with the highest available version.
	Latest(ctx context.Context) (Secret, error)
}

// WebSecretRegistry fetches secrets from a remote JSON document mapping
// version strings to obfuscated integer arrays.
type WebSecretRegistry struct {
	// URL of the secrets document. Empty means DefaultSecretsURL.
	URL string

	// Timeout bounds the fetch. Zero means 10 seconds.
	Timeout time.Duration
}

// Latest implements SecretRegistry.
func (r *WebSecretRegistry) Latest(ctx context.Context) (Secret, error) {
	rawURL := r.URL
	if rawURL == "" {
		rawURL = DefaultSecretsURL
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Secret{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Secret{}, fmt.Errorf("fetching secret registry: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Secret{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Secret{}, fmt.Errorf("secret registry returned status %d: %s", resp.StatusCode, data)
	}

	var versions map[string][]int
	if err := json.Unmarshal(data, &versions); err != nil {
		return Secret{}, fmt.Errorf("parsing secret registry: %w", err)
	}
	return latestVersion(versions)
}

func latestVersion(versions map[string][]int) (Secret, error) {
	best := Secret{Version: -1}
	for key, values := range versions {
		version, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if version > best.Version {
			best = Secret{Version: version, Data: values}
		}
	}
	if best.Version < 0 {
		return Secret{}, fmt.Errorf("secret registry has no usable versions")
	}
	return best, nil
}

// StaticSecretRegistry serves a fixed set of secrets. Intended for tests.
type StaticSecretRegistry struct {
	Secrets []Secret
}

// Latest implements SecretRegistry, returning the highest version held.
func (r *StaticSecretRegistry) Latest(context.Context) (Secret, error) {
	best := Secret{Version: -1}
	for _, s := range r.Secrets {
		if s.Version > best.Version {
			best = s
		}
	}
	if best.Version < 0 {
		return Secret{}, fmt.Errorf("static registry holds no secrets")
	}
	return best, nil
}
