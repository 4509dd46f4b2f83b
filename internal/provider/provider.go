// Package provider adapts external OAuth identity providers. The
// authentication core never talks to a provider itself; it consumes the
// verified Identity this package hands back from the callback exchange.
package provider

import "context"

// Identity is a verified external subject plus profile hints. Subject is the
// provider's stable identifier; it is the only field the core keys on.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Provider is the contract an identity provider adapter must implement.
type Provider interface {
	// AuthURL returns the provider's authorization URL. The state value
	// round-trips opaque application data (here: the exchange mode).
	AuthURL(state string) string

	// Exchange swaps an authorization code for a verified Identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}
