package api

import "github.com/google/uuid"

// generateKeyID returns a new unique id for an API key record. The id is
// distinct from the key's secret: it is safe to log and appears in
// list-keys responses.
func generateKeyID() string {
	return "key_" + uuid.NewString()
}
