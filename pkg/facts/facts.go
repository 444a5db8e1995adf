package facts

import (
	"encoding/json"
	"sort"
	"strings"
)

// Kind identifies a fact type. Its string form is also the key facts are
// echoed under in evaluation outcomes.
type Kind string

const (
	KindMember     Kind = "Member"
	KindWallet     Kind = "Wallet"
	KindCompliance Kind = "Compliance"
)

// Kinds lists every fact kind in insertion order.
var Kinds = []Kind{KindMember, KindWallet, KindCompliance}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Fact is a domain object the rule engine can read fields from.
type Fact interface {
	Kind() Kind
	// Field returns the value of the named field. Numeric fields are
	// returned as Decimal.
	Field(name string) (any, bool)
	// Export returns a plain map view of the fact for scripts and echoes.
	Export() map[string]any
}

// FieldSpec describes a statically known field of a fact kind.
type FieldSpec struct {
	Name    string
	Numeric bool
	// Enum lists the allowed values when the field is an enumeration.
	Enum []string
}

// Schema returns the known fields of kind. Member has an open schema and
// returns nil.
func Schema(kind Kind) []FieldSpec {
	switch kind {
	case KindWallet:
		return []FieldSpec{
			{Name: "balance", Numeric: true},
			{Name: "currency", Enum: enumStrings(Currencies)},
			{Name: "status", Enum: enumStrings(WalletStatuses)},
		}
	case KindCompliance:
		return []FieldSpec{
			{Name: "riskLevel", Enum: enumStrings(RiskLevels)},
			{Name: "kycStatus", Enum: enumStrings(KYCStatuses)},
		}
	default:
		return nil
	}
}

// LookupField returns the schema entry for a field of kind, if kind has a closed schema.
func LookupField(kind Kind, name string) (FieldSpec, bool) {
	for _, f := range Schema(kind) {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns the sorted field names of kind.
func FieldNames(kind Kind) []string {
	schema := Schema(kind)
	names := make([]string, 0, len(schema))
	for _, f := range schema {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// FactContext is the set of facts supplied with one evaluation.
type FactContext struct {
	Member     *Member     `json:"member,omitempty"`
	Wallet     *Wallet     `json:"wallet,omitempty"`
	Compliance *Compliance `json:"compliance,omitempty"`
}

// Present returns the non-nil facts in insertion order.
func (fc *FactContext) Present() []Fact {
	if fc == nil {
		return nil
	}
	var out []Fact
	if fc.Member != nil {
		out = append(out, fc.Member)
	}
	if fc.Wallet != nil {
		out = append(out, fc.Wallet)
	}
	if fc.Compliance != nil {
		out = append(out, fc.Compliance)
	}
	return out
}

// Member is the subject of an evaluation. Its attributes are opaque to the
// runtime; rules address them by key, with dots descending into nested maps.
type Member struct {
	Attributes map[string]any
}

// NewMember creates a Member from an attribute map.
func NewMember(attrs map[string]any) *Member {
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return &Member{Attributes: attrs}
}

// Kind implements Fact.
func (m *Member) Kind() Kind { return KindMember }

// MarshalJSON encodes the attributes as a plain object.
func (m *Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Attributes)
}

// UnmarshalJSON decodes a plain object into the attributes.
func (m *Member) UnmarshalJSON(data []byte) error {
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return err
	}
	if attrs == nil {
		attrs = make(map[string]any)
	}
	m.Attributes = attrs
	return nil
}

// Field implements Fact.
func (m *Member) Field(name string) (any, bool) {
	var current any = m.Attributes
	for _, part := range strings.Split(name, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return normalizeNumber(current), true
}

// Export implements Fact.
func (m *Member) Export() map[string]any {
	out := make(map[string]any, len(m.Attributes))
	for k, v := range m.Attributes {
		out[k] = v
	}
	return out
}

// normalizeNumber converts JSON numbers into Decimal so comparisons do not
// depend on how the member document was decoded.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case float64:
		if d, err := DecimalFromFloat(n); err == nil {
			return d
		}
	case int:
		return DecimalFromInt(int64(n))
	case int64:
		return DecimalFromInt(n)
	}
	return v
}

// Wallet is a member's balance account.
type Wallet struct {
	Balance  Decimal      `json:"balance"`
	Currency Currency     `json:"currency,omitempty"`
	Status   WalletStatus `json:"status,omitempty"`
}

// Kind implements Fact.
func (w *Wallet) Kind() Kind { return KindWallet }

// Field implements Fact.
func (w *Wallet) Field(name string) (any, bool) {
	switch name {
	case "balance":
		return w.Balance, true
	case "currency":
		return enumField(w.Currency)
	case "status":
		return enumField(w.Status)
	}
	return nil, false
}

// Export implements Fact.
func (w *Wallet) Export() map[string]any {
	return map[string]any{
		"balance":  w.Balance.String(),
		"currency": string(w.Currency),
		"status":   string(w.Status),
	}
}

// Compliance is a member's regulatory standing.
type Compliance struct {
	RiskLevel RiskLevel `json:"riskLevel,omitempty"`
	KYCStatus KYCStatus `json:"kycStatus,omitempty"`
}

// Kind implements Fact.
func (c *Compliance) Kind() Kind { return KindCompliance }

// Field implements Fact.
func (c *Compliance) Field(name string) (any, bool) {
	switch name {
	case "riskLevel":
		return enumField(c.RiskLevel)
	case "kycStatus":
		return enumField(c.KYCStatus)
	}
	return nil, false
}

// enumField reports an unset enum as absent so that exists sees it missing.
func enumField[T ~string](v T) (any, bool) {
	if v == "" {
		return nil, false
	}
	return string(v), true
}

// Export implements Fact.
func (c *Compliance) Export() map[string]any {
	return map[string]any{
		"riskLevel": string(c.RiskLevel),
		"kycStatus": string(c.KYCStatus),
	}
}
