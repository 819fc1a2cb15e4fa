package platforms

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// Adapter fetches a fresh Snapshot for one external ticketing platform.
// One implementation per platform; lookup goes through the Registry so adding
// a platform is a registration, not an if/else edit.
type Adapter interface {
	Platform() string
	FetchSnapshot(ctx context.Context, externalEventID string) (Snapshot, error)
}

// Credentials carries every platform API credential, resolved once at startup
// and injected into adapter constructors. Reading env at call time is exactly
// the runtime surprise this struct exists to prevent.
type Credentials struct {
	HumanitixAPIKey   string
	EventbriteToken   string
	HumanitixBaseURL  string
	EventbriteBaseURL string
	RequestTimeout    time.Duration
}

// CredentialsFromEnv resolves credentials from the process environment.
// Missing keys are left empty here; NewRegistry decides which platforms can
// be registered.
func CredentialsFromEnv() Credentials {
	timeout := 30 * time.Second
	if v := strings.TrimSpace(os.Getenv("PLATFORM_HTTP_TIMEOUT_SECONDS")); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			timeout = d
		}
	}
	return Credentials{
		HumanitixAPIKey:   strings.TrimSpace(os.Getenv("HUMANITIX_API_KEY")),
		EventbriteToken:   strings.TrimSpace(os.Getenv("EVENTBRITE_API_TOKEN")),
		HumanitixBaseURL:  strings.TrimSpace(os.Getenv("HUMANITIX_API_BASE_URL")),
		EventbriteBaseURL: strings.TrimSpace(os.Getenv("EVENTBRITE_API_BASE_URL")),
		RequestTimeout:    timeout,
	}
}

// Registry maps platform identifiers to adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewEmptyRegistry() *Registry {
	return &Registry{adapters: map[string]Adapter{}}
}

// NewRegistry builds adapters for every platform whose credential is present.
// A platform without a credential is simply not registered; jobs for it fail
// with ErrCredentialMissing at lookup.
func NewRegistry(creds Credentials, httpClient *http.Client) *Registry {
	r := NewEmptyRegistry()
	if creds.HumanitixAPIKey != "" {
		if a, err := NewHumanitix(creds, httpClient); err == nil {
			r.Register(a)
		}
	}
	if creds.EventbriteToken != "" {
		if a, err := NewEventbrite(creds, httpClient); err == nil {
			r.Register(a)
		}
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for a platform. Unknown platform names and
// platforms without a configured credential both surface as
// ErrCredentialMissing, wrapped with the platform name.
func (r *Registry) Get(platform string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", platform, ErrCredentialMissing)
	}
	return a, nil
}

// Platforms lists registered platform names, sorted for stable output.
func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
