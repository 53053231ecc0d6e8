package param

// DefaultSeparator joins array items and appended values when no separator is configured.
const DefaultSeparator = ","

// RelativePosition places a parameter relative to the rest of the hit.
type RelativePosition int

const (
	// None keeps the parameter in insertion order.
	None RelativePosition = iota
	// First moves the parameter to the start of the query string.
	First
	// Last moves the parameter to the end of the query string.
	Last
	// Before places the parameter just before RelativeParameterKey.
	Before
	// After places the parameter just after RelativeParameterKey.
	After
)

// Options controls how a Param is stored and serialized.
type Options struct {
	RelativePosition     RelativePosition
	RelativeParameterKey string
	// Separator joins array items and appended values. Defaults to DefaultSeparator.
	Separator string
	// Encode percent-encodes the value in the final hit.
	Encode bool
	// Persistent keeps the parameter across hits instead of clearing it after the next one.
	Persistent bool
	// Append concatenates with an existing value for the same key instead of replacing it.
	Append bool
}

func (o Options) normalized() Options {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	return o
}

// PersistentOptions returns options for a persistent, unencoded parameter.
func PersistentOptions() Options {
	return Options{Persistent: true, Separator: DefaultSeparator}
}

// PersistentEncodedOptions returns options for a persistent, percent-encoded parameter.
func PersistentEncodedOptions() Options {
	return Options{Persistent: true, Encode: true, Separator: DefaultSeparator}
}

// EncodedOptions returns options for a volatile, percent-encoded parameter.
func EncodedOptions() Options {
	return Options{Encode: true, Separator: DefaultSeparator}
}

// AppendEncodedOptions returns options for a volatile parameter that is appended to any
// existing value for its key and percent-encoded.
func AppendEncodedOptions() Options {
	return Options{Append: true, Encode: true, Separator: DefaultSeparator}
}
