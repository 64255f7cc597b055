package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for derived record identity.
// Version suffix enables future algorithm migration.
const (
	DomainMacro   = "swirl/macro/v1"
	DomainPackage = "swirl/package/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ownerNameID hashes the canonical {"name","owner_id"} object.
func ownerNameID(domain, ownerID, name string) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"owner_id": ownerID,
		"name":     name,
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MacroID derives the id of a macro from its owner and name.
// Renaming a macro or moving it to another owner changes its id.
func MacroID(ownerID, name string) string {
	// Strings always marshal; the error path is unreachable.
	id, _ := ownerNameID(DomainMacro, ownerID, name)
	return id
}

// PackageID derives the id of a package from its owner and name.
func PackageID(ownerID, name string) string {
	id, _ := ownerNameID(DomainPackage, ownerID, name)
	return id
}

// WithDerivedID returns a copy of m whose ID matches its owner and name.
func (m Macro) WithDerivedID() Macro {
	m.ID = MacroID(m.OwnerID, m.Name)
	return m
}
