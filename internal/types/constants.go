package types

const ContextUserKey = "user"

const (
	// DefaultPageSize is used when a collection request carries no limit.
	DefaultPageSize = 20
	// MaxPageSize caps the number of rows returned by one collection request.
	MaxPageSize = 100
)

// AccountProvider identifies where a user's credentials live.
type AccountProvider string

const (
	ProviderInternal AccountProvider = "internal"
	ProviderLDAP     AccountProvider = "ldap"
)
