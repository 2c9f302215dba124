package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Source yields the API key for one provider. Keys are resolved on demand so a
// missing credential surfaces on the first provider call, not at startup.
type Source interface {
	APIKey(ctx context.Context) (string, error)
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Static is a key read from the environment. An empty key is passed through
// and rejected by the upstream API.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	return string(s), nil
}

// tokenPayload is the expected JSON shape stored in SSM for an API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStore fetches a JSON-wrapped token from SSM once and caches it for the
// process lifetime. A failed fetch is retried on the next call.
type ParamStore struct {
	getter Getter
	name   string

	mu     sync.RWMutex
	loaded bool
	key    string
}

func NewParamStore(getter Getter, name string) (*ParamStore, error) {
	if getter == nil {
		return nil, errors.New("credentials: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credentials: parameter name must not be empty")
	}
	return &ParamStore{getter: getter, name: name}, nil
}

func (p *ParamStore) APIKey(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.loaded {
		key := p.key
		p.mu.RUnlock()
		return key, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.key, nil
	}

	raw, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("credentials: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("credentials: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", fmt.Errorf("credentials: API token in %s is empty", p.name)
	}

	p.key = tp.Token
	p.loaded = true
	return p.key, nil
}

// Resolve picks the environment key when set and falls back to SSM when a
// parameter store and name are available.
func Resolve(envKey string, getter Getter, paramName string) (Source, error) {
	if strings.TrimSpace(envKey) != "" || getter == nil {
		return Static(envKey), nil
	}
	return NewParamStore(getter, paramName)
}
