package attracker

import (
	"strconv"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/dispatcher"
	"github.com/atinternet/go-tracker/internal/param"
)

// CustomObject is free-form JSON data merged into the stc parameter of the next hit.
type CustomObject struct {
	bo.Base
	Value map[string]interface{}
}

// CustomObjects creates custom objects for a tracker.
type CustomObjects struct {
	host host
}

// CustomObjects returns the custom object factory.
func (t *Tracker) CustomObjects() *CustomObjects {
	return &CustomObjects{host: t}
}

// Add registers a custom object.
func (c *CustomObjects) Add(value map[string]interface{}) *CustomObject {
	obj := &CustomObject{Base: bo.NewBase(), Value: value}
	c.host.register(obj)
	return obj
}

//nolint:revive // Object implementation
func (c *CustomObject) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindCustomObject} }

//nolint:revive // Object implementation
func (c *CustomObject) SetParams(b *buffer.Buffer) {
	b.Set(param.New(dispatcher.KeyCustomContext, param.AsJSON(c.Value), param.AppendEncodedOptions()))
}

// NuggAd carries data from the NuggAd audience platform.
type NuggAd struct {
	bo.Base
	Data map[string]interface{}
}

// NuggAds creates NuggAd objects for a tracker.
type NuggAds struct {
	host host
}

// NuggAds returns the NuggAd factory.
func (t *Tracker) NuggAds() *NuggAds {
	return &NuggAds{host: t}
}

// Add registers NuggAd data.
func (n *NuggAds) Add(data map[string]interface{}) *NuggAd {
	obj := &NuggAd{Base: bo.NewBase(), Data: data}
	n.host.register(obj)
	return obj
}

//nolint:revive // Object implementation
func (n *NuggAd) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindNuggAd} }

//nolint:revive // Object implementation
func (n *NuggAd) SetParams(b *buffer.Buffer) {
	b.Set(param.New(dispatcher.KeyCustomContext, param.AsJSON(map[string]interface{}{"nuggad": n.Data}),
		param.AppendEncodedOptions()))
}

// MvTesting is the exposure of the visitor to one version of a multivariate test.
type MvTesting struct {
	bo.Base
	Test     string
	Wave     int
	Creation string
	// Variables maps each tested variable to the version shown.
	Variables []MvTestingVar

	host host
}

// MvTestingVar is one variable of a multivariate test.
type MvTestingVar struct {
	Variable string
	Version  string
}

// MvTestings creates multivariate test exposures for a tracker.
type MvTestings struct {
	host host
}

// MvTestings returns the multivariate testing factory.
func (t *Tracker) MvTestings() *MvTestings {
	return &MvTestings{host: t}
}

// Add registers a test exposure.
func (m *MvTestings) Add(test string, wave int, creation string) *MvTesting {
	obj := &MvTesting{Base: bo.NewBase(), Test: test, Wave: wave, Creation: creation, host: m.host}
	m.host.register(obj)
	return obj
}

// Send sends the exposure now.
func (m *MvTesting) Send() {
	m.host.dispatch(m)
}

//nolint:revive // Object implementation
func (m *MvTesting) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindMvTesting} }

//nolint:revive // Object implementation
func (m *MvTesting) SetParams(b *buffer.Buffer) {
	b.Set(param.New("type", "mvt", param.Options{}))
	b.Set(param.New("abmvc", m.Test+"-"+strconv.Itoa(m.Wave)+"-"+m.Creation, param.EncodedOptions()))
	for i, v := range m.Variables {
		b.Set(param.New("abmv"+strconv.Itoa(i+1), v.Variable+"-"+v.Version, param.EncodedOptions()))
	}
}
