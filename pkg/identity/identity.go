// Package identity computes the deterministic internal keys that let widget values survive reruns.
package identity

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/rerun/pkg/domain"
	"github.com/cespare/xxhash/v2"
)

// Reserved keys collide with root container names and cannot be used as widget keys.
var reserved = map[string]struct{}{
	domain.MainContainerName:    {},
	domain.SidebarContainerName: {},
}

// ValidateUserKey fails for blank or reserved keys.
func ValidateUserKey(userKey string) error {
	if strings.TrimSpace(userKey) == "" {
		return domain.NewConfigurationError("widget key cannot be blank")
	}
	if _, ok := reserved[strings.ToLower(strings.TrimSpace(userKey))]; ok {
		return domain.NewConfigurationError("widget key %q is reserved", userKey)
	}
	return nil
}

// ComputeInternalKey returns the identity of a widget within a page namespace.
//
// Without a user key the result is a pure function of the type name, the fields (sorted by name)
// and the noPersist flag. With a user key only the namespace and the key literal count.
func ComputeInternalKey(typeName string, fields []domain.Field, noPersist bool, userKey *string, namespace string) (string, error) {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	if userKey != nil {
		if err := ValidateUserKey(*userKey); err != nil {
			return "", err
		}
		return namespace + ":key:" + *userKey, nil
	}
	return namespace + ":" + typeName + ":" + Hash128(Canonical(typeName, fields, noPersist)), nil
}

// Key is a convenience wrapper around ComputeInternalKey for a widget identity.
func Key(typeName string, id domain.Identity, namespace string) (string, error) {
	if id.UserKey != "" {
		return ComputeInternalKey(typeName, id.Fields, id.NoPersist, &id.UserKey, namespace)
	}
	return ComputeInternalKey(typeName, id.Fields, id.NoPersist, nil, namespace)
}

// Canonical renders the identity inputs as a stable string.
func Canonical(typeName string, fields []domain.Field, noPersist bool) string {
	sorted := slices.Clone(fields)
	slices.SortStableFunc(sorted, func(a, b domain.Field) int {
		return strings.Compare(a.Name, b.Name)
	})

	var b strings.Builder
	b.WriteString(strconv.Quote(typeName))
	for _, f := range sorted {
		b.WriteString(";")
		b.WriteString(f.Name)
		b.WriteString("=")
		b.WriteString(strconv.Quote(fmt.Sprintf("%T:%v", f.Value, f.Value)))
	}
	b.WriteString(";noPersist=")
	b.WriteString(strconv.FormatBool(noPersist))
	return b.String()
}

// Hash128 returns 32 hex characters built from two independently salted 64-bit xxhash digests.
func Hash128(s string) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], xxhash.Sum64String(s))
	binary.BigEndian.PutUint64(buf[8:], xxhash.Sum64String("\x00rerun\x00"+s))
	return hex.EncodeToString(buf[:])
}

// Segment derives a container path segment from an internal key.
// Internal keys may contain characters that are not allowed in container paths.
func Segment(internalKey string) string {
	return "w" + strconv.FormatUint(xxhash.Sum64String(internalKey), 36)
}
