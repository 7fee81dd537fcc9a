package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
const (
	DomainQuery  = "odatacriteria/query/v1"
	DomainSchema = "odatacriteria/schema/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// QueryHash identifies a compiled query by its inputs: the schema it was
// compiled against, the root type, and the canonical form of the filter
// tree. Two compilations with the same hash produce the same criteria.
func QueryHash(schemaHash, rootType string, tree IRObject, caseSensitive bool) (string, error) {
	obj := IRObject{
		"case_sensitive": IRBool(caseSensitive),
		"root_type":      IRString(rootType),
		"schema_hash":    IRString(schemaHash),
		"tree":           tree,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("QueryHash: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// SchemaHash identifies a mapping schema by its canonical description.
func SchemaHash(description IRObject) (string, error) {
	canonical, err := MarshalCanonical(description)
	if err != nil {
		return "", fmt.Errorf("SchemaHash: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}
