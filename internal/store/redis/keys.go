package redis

import "strings"

// KeyPrefix namespaces every key written by shelf.
const KeyPrefix = "shelf:"

// Key returns the namespaced redis key for a storage key.
// Keys that already carry the prefix are returned unchanged.
func Key(name string) string {
	if strings.HasPrefix(name, KeyPrefix) {
		return name
	}
	return KeyPrefix + name
}
