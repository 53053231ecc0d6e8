package atcomponents

import "github.com/atinternet/go-tracker/subsystems"

// NoEncryption stores hits and identified-visitor settings in clear text. This is the default.
func NoEncryption() subsystems.ComponentConfigurer[subsystems.Encryptor] {
	return noEncryption{}
}

type noEncryption struct{}

func (noEncryption) Build(subsystems.ClientContext) (subsystems.Encryptor, error) {
	return nil, nil //nolint:nilnil
}
