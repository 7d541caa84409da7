package types

// redacted replaces secret values in any rendered output.
const redacted = "***REDACTED***"

var redactedJSON = []byte(`"` + redacted + `"`)

// SecretString is a string that cannot leak through fmt or JSON encoding.
// Both String() and MarshalJSON() render a fixed placeholder; callers that
// genuinely need the plaintext (the credential cipher, outbound Authorization
// headers) must call Unmask explicitly.
type SecretString string

// String implements fmt.Stringer with a redacted placeholder.
func (s SecretString) String() string { return redacted }

// MarshalJSON renders the redacted placeholder instead of the value.
func (s SecretString) MarshalJSON() ([]byte, error) { return redactedJSON, nil }

// Unmask returns the raw plaintext. Keep call sites few and auditable.
func (s SecretString) Unmask() string { return string(s) }
