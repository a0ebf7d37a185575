// Package auth implements the Authenticator (C6): credential extraction,
// tenant resolution, and the enabled/model-allow-list gate.
package auth

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/ccgate/ccgate/internal/apperr"
	"github.com/ccgate/ccgate/internal/config"
	"github.com/ccgate/ccgate/internal/matcher"
)

// Credential is the raw token pulled from the request, regardless of which
// of the four supported locations it came from.
type Credential struct {
	Token string
	Found bool
}

// HeaderGetter is the minimal accessor Extract needs from a request's
// headers. Both net/http.Header and a fasthttp-backed adapter satisfy it.
type HeaderGetter interface {
	Get(key string) string
}

// Extract pulls the client credential from the request in priority order:
// Authorization: Bearer, Authorization: API-Key, X-Api-Key header, then the
// api_key query parameter.
func Extract(header HeaderGetter, query url.Values) Credential {
	if a := header.Get("Authorization"); a != "" {
		if t, ok := trimPrefix(a, "Bearer "); ok {
			return Credential{Token: t, Found: true}
		}
		if t, ok := trimPrefix(a, "API-Key "); ok {
			return Credential{Token: t, Found: true}
		}
	}
	if k := header.Get("X-Api-Key"); k != "" {
		return Credential{Token: k, Found: true}
	}
	if k := query.Get("api_key"); k != "" {
		return Credential{Token: k, Found: true}
	}
	return Credential{}
}

func trimPrefix(header, prefix string) (string, bool) {
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}

// ExtractModel reads the "model" field from a JSON request body. It returns
// ok=false when the body is not valid JSON or has no model field, in which
// case the model allow-list check is skipped entirely.
func ExtractModel(body []byte) (string, bool) {
	var payload struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	if payload.Model == "" {
		return "", false
	}
	return payload.Model, true
}

// Authenticator resolves tenants from a live config snapshot's tenant list.
type Authenticator struct {
	store *config.Store
}

// New builds an Authenticator reading tenants from store.
func New(store *config.Store) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate resolves the request's credential to a tenant and, when model
// is non-empty, checks it against the tenant's allow-list. It returns the
// resolved tenant or an *apperr.Error describing the specific failure.
func (a *Authenticator) Authenticate(header HeaderGetter, query url.Values, model string) (*config.Tenant, error) {
	cred := Extract(header, query)
	if !cred.Found {
		return nil, apperr.MissingAuth("missing credentials")
	}

	snap := a.store.Snapshot()
	tenant := findTenant(snap.Tenants, cred.Token)
	if tenant == nil {
		return nil, apperr.InvalidKey("invalid api key")
	}
	if !tenant.Enabled {
		return nil, apperr.TenantDisabled("tenant is disabled")
	}

	if model != "" && !modelAllowed(tenant.AllowedModels, model) {
		return nil, apperr.ModelNotAllowed("model " + model + " is not in the tenant's allow-list")
	}

	return tenant, nil
}

func findTenant(tenants []config.Tenant, key string) *config.Tenant {
	for i := range tenants {
		if tenants[i].Key == key {
			return &tenants[i]
		}
	}
	return nil
}

func modelAllowed(patterns []string, model string) bool {
	if len(patterns) == 0 {
		return false
	}
	_, ok := matcher.FindFirst(patterns, model)
	return ok
}
