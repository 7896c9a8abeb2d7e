package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"genstudio/internal/domain"
)

// ProviderRunningHub identifies the managed generation service token.
const ProviderRunningHub = "runninghub"

type tokenDocument struct {
	AccessToken string `json:"access_token"`
}

// Store holds the long-lived backend credentials resolved once at startup.
type Store struct {
	tokens map[string]string
}

// Load reads the token document at path. A non-empty override (usually the
// RUNNINGHUB_API_KEY environment variable) wins over the file, and in that
// case the file is not required.
func Load(path, override string) (*Store, error) {
	if key := strings.TrimSpace(override); key != "" {
		return &Store{tokens: map[string]string{ProviderRunningHub: key}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("credentials: read %s: %w", path, domain.ErrConfigMissing)
	}
	var doc tokenDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("credentials: decode %s: %w", path, domain.ErrConfigMissing)
	}
	token := strings.TrimSpace(doc.AccessToken)
	if token == "" {
		return nil, fmt.Errorf("credentials: %s has no access_token: %w", path, domain.ErrConfigMissing)
	}
	return &Store{tokens: map[string]string{ProviderRunningHub: token}}, nil
}

// Token returns the token for provider or ErrConfigMissing.
func (s *Store) Token(provider string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("credentials: %s: %w", provider, domain.ErrConfigMissing)
	}
	token, ok := s.tokens[provider]
	if !ok || token == "" {
		return "", fmt.Errorf("credentials: %s: %w", provider, domain.ErrConfigMissing)
	}
	return token, nil
}

func (s *Store) RunningHubToken() (string, error) {
	return s.Token(ProviderRunningHub)
}
