package ir

import "encoding/json"

// RecordKind names the two kinds of persisted records.
type RecordKind string

const (
	KindMacro   RecordKind = "macro"
	KindPackage RecordKind = "package"
)

// Environment is the full set of packages and top-level macros loaded from
// the record store. It only exists for the duration of a resolve.
type Environment struct {
	ID       string    `json:"id"` // Resolve generation token
	Packages []Package `json:"packages"`
	Macros   []Macro   `json:"macros"`
}

// Package is a namespace of macros that may depend on other packages.
type Package struct {
	ID           string    `json:"id"` // Derived from owner_id and name
	OwnerID      string    `json:"owner_id"`
	Name         string    `json:"name"` // Namespace key
	Description  string    `json:"description,omitempty"`
	DateCreated  string    `json:"date_created"`
	Macros       []Macro   `json:"macros,omitempty"`
	Dependencies []Package `json:"dependencies,omitempty"`
}

// Macro is a named formula with declared variables.
type Macro struct {
	ID          string   `json:"id"` // Derived from owner_id and name
	OwnerID     string   `json:"owner_id"`
	Name        string   `json:"name"`      // Invocation name
	Variables   []string `json:"variables"` // "n" or "n=5"
	Formula     string   `json:"formula"`
	Description string   `json:"description,omitempty"`
}

// UnmarshalJSON accepts the legacy "_id" key alongside "id".
func (m *Macro) UnmarshalJSON(data []byte) error {
	type plain Macro
	var aux struct {
		plain
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Macro(aux.plain)
	if m.ID == "" {
		m.ID = aux.LegacyID
	}
	return nil
}

// UnmarshalJSON accepts the legacy "_id" key alongside "id".
func (p *Package) UnmarshalJSON(data []byte) error {
	type plain Package
	var aux struct {
		plain
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Package(aux.plain)
	if p.ID == "" {
		p.ID = aux.LegacyID
	}
	return nil
}

// MacroNames returns the names of the given macros in order.
func MacroNames(macros []Macro) []string {
	names := make([]string, len(macros))
	for i, m := range macros {
		names[i] = m.Name
	}
	return names
}
