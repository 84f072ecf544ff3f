// Package vault abstracts the secret store the broker fetches credentials
// from. The production implementation speaks the 1Password Connect REST API;
// a seeded in-memory fake backs demo mode and tests.
package vault

import "context"

// Field is a single labeled secret value on a vault item.
type Field struct {
	Label string
	Value string
}

// Item is the full detail view of a vault item.
type Item struct {
	ID       string
	Title    string
	VaultID  string
	Username string
	Fields   []Field
}

// Probe is the result of a vault connectivity check.
type Probe struct {
	Connected       bool
	VaultAccessible bool
	VaultName       string
	Error           string
}

// Gateway is the lookup contract the issuance service depends on.
// LookupByTitle returns (nil, nil) when no item matches; errors are reserved
// for transport and store failures.
type Gateway interface {
	LookupByTitle(ctx context.Context, title, vaultID string) (*Item, error)
	HealthProbe(ctx context.Context) Probe
}

// Flatten converts an item into the flat credential map embedded in tokens.
// Empty field values are dropped; the underscore-prefixed keys carry item
// provenance and are reserved, so vault fields must not use that prefix.
func Flatten(item *Item) map[string]string {
	credentials := make(map[string]string, len(item.Fields)+4)

	if item.Username != "" {
		credentials["username"] = item.Username
	}
	for _, field := range item.Fields {
		if field.Label == "" || field.Value == "" {
			continue
		}
		credentials[field.Label] = field.Value
	}

	credentials["_item_id"] = item.ID
	credentials["_item_title"] = item.Title
	vaultID := item.VaultID
	if vaultID == "" {
		vaultID = "unknown"
	}
	credentials["_vault_id"] = vaultID

	return credentials
}
