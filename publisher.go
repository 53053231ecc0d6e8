package attracker

import (
	"strconv"
	"strings"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// onAppAd holds what publishers and self-promotions share: an impression is registered and sent
// with the next screen, a touch is sent on its own.
type onAppAd struct {
	bo.Base
	touched bool
	host    host
}

func (a *onAppAd) describe() bo.Descriptor {
	if a.touched {
		return bo.Descriptor{Kind: bo.KindOnAppAdTouch}
	}
	return bo.Descriptor{Kind: bo.KindOnAppAdView}
}

func (a *onAppAd) setParams(b *buffer.Buffer, label string) {
	b.Set(param.New("type", "AT", param.Options{}))
	if a.touched {
		b.Set(param.New("atc", label, param.EncodedOptions()))
		a.host.screenContext().setOrigin(b, "patc", "s2atc")
		return
	}
	b.Set(param.New("ati", label, param.AppendEncodedOptions()))
}

func sendImpressions(h host) {
	if impressions := h.pending(bo.KindOnAppAdView); len(impressions) > 0 {
		h.dispatch(impressions...)
	}
}

// Publisher is an advertisement shown in the application.
type Publisher struct {
	onAppAd
	CampaignID        string
	Creation          string
	Variant           string
	Format            string
	GeneralPlacement  string
	DetailedPlacement string
	AdvertiserID      string
	URL               string
}

// Publishers creates publisher advertisements for a tracker.
type Publishers struct {
	host host
}

// Publishers returns the publisher factory.
func (t *Tracker) Publishers() *Publishers {
	return &Publishers{host: t}
}

// Add registers an impression of the publisher campaign.
func (p *Publishers) Add(campaignID string) *Publisher {
	pub := &Publisher{onAppAd: onAppAd{Base: bo.NewBase(), host: p.host}, CampaignID: campaignID}
	p.host.register(pub)
	return pub
}

// SendImpressions sends every registered impression, of publishers and self-promotions, in one
// hit.
func (p *Publishers) SendImpressions() {
	sendImpressions(p.host)
}

// SendImpression sends this impression now.
func (p *Publisher) SendImpression() {
	p.host.dispatch(p)
}

// SendTouch sends a click on the advertisement.
func (p *Publisher) SendTouch() {
	p.touched = true
	p.host.dispatch(p)
}

//nolint:revive // Object implementation
func (p *Publisher) Describe() bo.Descriptor { return p.describe() }

//nolint:revive // Object implementation
func (p *Publisher) SetParams(b *buffer.Buffer) {
	p.setParams(b, strings.Join([]string{"PUB", p.CampaignID, p.Creation, p.Variant, p.Format,
		p.GeneralPlacement, p.DetailedPlacement, p.AdvertiserID, p.URL}, "-"))
}

// SelfPromotion is an advertisement for the application's own content.
type SelfPromotion struct {
	onAppAd
	AdID      int
	Format    string
	ProductID string
}

// SelfPromotions creates self-promotions for a tracker.
type SelfPromotions struct {
	host host
}

// SelfPromotions returns the self-promotion factory.
func (t *Tracker) SelfPromotions() *SelfPromotions {
	return &SelfPromotions{host: t}
}

// Add registers an impression of the self-promotion.
func (s *SelfPromotions) Add(adID int) *SelfPromotion {
	promo := &SelfPromotion{onAppAd: onAppAd{Base: bo.NewBase(), host: s.host}, AdID: adID}
	s.host.register(promo)
	return promo
}

// SendImpressions sends every registered impression, of publishers and self-promotions, in one
// hit.
func (s *SelfPromotions) SendImpressions() {
	sendImpressions(s.host)
}

// SendImpression sends this impression now.
func (s *SelfPromotion) SendImpression() {
	s.host.dispatch(s)
}

// SendTouch sends a click on the self-promotion.
func (s *SelfPromotion) SendTouch() {
	s.touched = true
	s.host.dispatch(s)
}

//nolint:revive // Object implementation
func (s *SelfPromotion) Describe() bo.Descriptor { return s.describe() }

//nolint:revive // Object implementation
func (s *SelfPromotion) SetParams(b *buffer.Buffer) {
	s.setParams(b, "INT-"+strconv.Itoa(s.AdID)+"-"+s.Format+"||"+s.ProductID)
}
