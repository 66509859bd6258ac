package mail

import (
	"fmt"
	"strings"
)

// List names are user-controlled and flow into the provider's query
// grammar. Embedded quotes are stripped and the key is quoted so grammar
// operators inside a name cannot change the query's meaning.
func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, `"`, "")
	return strings.TrimSpace(key)
}

// fromQuery matches messages whose sender matches the key.
func fromQuery(key string) string {
	return fmt.Sprintf(`from:%q`, sanitizeKey(key))
}

// fromOrSubjectQuery matches the key against sender or subject. Used when
// aggregating a workspace's lists, where broader matching is wanted.
func fromOrSubjectQuery(key string) string {
	k := sanitizeKey(key)
	return fmt.Sprintf(`from:%q OR subject:%q`, k, k)
}
