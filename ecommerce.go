package attracker

import (
	"strconv"
	"strings"
	"sync"

	"github.com/atinternet/go-tracker/internal/bo"
	"github.com/atinternet/go-tracker/internal/buffer"
	"github.com/atinternet/go-tracker/internal/param"
)

// OrderStatus is the state of an order on the merchant's side.
type OrderStatus int

// Order statuses.
const (
	OrderNoInformation OrderStatus = iota
	OrderPending
	OrderCancelled
	OrderApproved
	OrderReturned
)

// Order is a purchase. It is sent with the next screen, together with the cart.
type Order struct {
	bo.Base
	OrderID              string
	Turnover             float64
	Status               OrderStatus
	PaymentMethod        int
	NewCustomer          bool
	ConfirmationRequired bool
	AmountTaxFree        float64
	AmountTaxIncluded    float64
	TaxAmount            float64
	DiscountTaxIncluded  float64
	DiscountTaxFree      float64
	PromotionalCode      string
	// CustomVars are written as o1, o2... in key order.
	CustomVars map[int]string
}

// Orders creates orders for a tracker.
type Orders struct {
	host host
}

// Orders returns the order factory.
func (t *Tracker) Orders() *Orders {
	return &Orders{host: t}
}

// Add registers an order.
func (o *Orders) Add(id string, turnover float64) *Order {
	order := &Order{Base: bo.NewBase(), OrderID: id, Turnover: turnover}
	o.host.register(order)
	return order
}

//nolint:revive // Object implementation
func (o *Order) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindOrder} }

//nolint:revive // Object implementation
func (o *Order) SetParams(b *buffer.Buffer) {
	b.Set(param.New("cmd", o.OrderID, param.EncodedOptions()))
	b.Set(param.New("roimt", o.Turnover, param.Options{}))
	b.Set(param.New("st", int(o.Status), param.Options{}))
	b.Set(param.New("mp", o.PaymentMethod, param.Options{}))
	b.Set(param.New("newcus", boolParam(o.NewCustomer), param.Options{}))
	if o.ConfirmationRequired {
		b.Set(param.New("tp", "pre1", param.Options{}))
	}
	setAmount(b, "mtht", o.AmountTaxFree)
	setAmount(b, "mtttc", o.AmountTaxIncluded)
	setAmount(b, "tax", o.TaxAmount)
	setAmount(b, "dsc", o.DiscountTaxIncluded)
	setAmount(b, "dscht", o.DiscountTaxFree)
	if o.PromotionalCode != "" {
		b.Set(param.New("pcd", o.PromotionalCode, param.EncodedOptions()))
	}
	for _, id := range sortedKeys(o.CustomVars) {
		b.Set(param.New("o"+strconv.Itoa(id), o.CustomVars[id], param.EncodedOptions()))
	}
}

func setAmount(b *buffer.Buffer, key string, amount float64) {
	if amount != 0 {
		b.Set(param.New(key, amount, param.Options{}))
	}
}

// Product is an item in the cart, or a product shown to the visitor.
type Product struct {
	ID                   string
	Categories           [6]string
	Quantity             int
	UnitPriceTaxIncluded float64
	UnitPriceTaxFree     float64
	DiscountTaxIncluded  float64
	DiscountTaxFree      float64
	PromotionalCode      string
}

// label is the product id prefixed with its non-empty categories.
func (p *Product) label() string {
	parts := make([]string, 0, len(p.Categories)+1)
	for _, c := range p.Categories {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(append(parts, p.ID), "::")
}

// Cart is the visitor's basket. It is written into basket screen hits and order hits while it
// has an id.
type Cart struct {
	id       string
	products []*Product
	lock     sync.Mutex
}

// Cart returns the tracker's cart.
func (t *Tracker) Cart() *Cart {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cart == nil {
		t.cart = &Cart{}
	}
	return t.cart
}

func (t *Tracker) cartSource() (bo.Object, bool) {
	t.lock.Lock()
	cart := t.cart
	t.lock.Unlock()
	if cart == nil {
		return nil, false
	}
	return cart.snapshot()
}

// Set starts a new cart with the given id, discarding any products.
func (c *Cart) Set(id string) *Cart {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.id, c.products = id, nil
	return c
}

// Unset clears the cart.
func (c *Cart) Unset() {
	c.Set("")
}

// ID returns the cart id.
func (c *Cart) ID() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.id
}

// AddProduct adds a product, replacing any product with the same id.
func (c *Cart) AddProduct(p Product) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for i, existing := range c.products {
		if existing.ID == p.ID {
			c.products[i] = &p
			return
		}
	}
	c.products = append(c.products, &p)
}

// RemoveProduct removes the product with the given id.
func (c *Cart) RemoveProduct(id string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for i, existing := range c.products {
		if existing.ID == id {
			c.products = append(c.products[:i], c.products[i+1:]...)
			return
		}
	}
}

// Products returns copies of the products in the cart.
func (c *Cart) Products() []Product {
	c.lock.Lock()
	defer c.lock.Unlock()
	ret := make([]Product, len(c.products))
	for i, p := range c.products {
		ret[i] = *p
	}
	return ret
}

func (c *Cart) snapshot() (bo.Object, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.id == "" {
		return nil, false
	}
	products := make([]Product, len(c.products))
	for i, p := range c.products {
		products[i] = *p
	}
	return &cartContent{Base: bo.NewBase(), id: c.id, products: products}, true
}

type cartContent struct {
	bo.Base
	id       string
	products []Product
}

func (c *cartContent) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindCart} }

func (c *cartContent) SetParams(b *buffer.Buffer) {
	b.Set(param.New("idcart", c.id, param.Options{}))
	for i, p := range c.products {
		n := strconv.Itoa(i + 1)
		b.Set(param.New("pdt"+n, p.label(), param.EncodedOptions()))
		if p.Quantity > 0 {
			b.Set(param.New("qte"+n, p.Quantity, param.Options{}))
		}
		setAmount(b, "mt"+n, p.UnitPriceTaxIncluded)
		setAmount(b, "mtht"+n, p.UnitPriceTaxFree)
		setAmount(b, "dsc"+n, p.DiscountTaxIncluded)
		setAmount(b, "dscht"+n, p.DiscountTaxFree)
		if p.PromotionalCode != "" {
			b.Set(param.New("pcode"+n, p.PromotionalCode, param.EncodedOptions()))
		}
	}
}

// Products sends product display hits.
type Products struct {
	host    host
	pending []Product
	lock    sync.Mutex
}

// Products returns the product display factory. Products added to it are shown together by
// SendViews.
func (t *Tracker) Products() *Products {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.products == nil {
		t.products = &Products{host: t}
	}
	return t.products
}

// Add queues a product for the next SendViews.
func (p *Products) Add(product Product) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.pending = append(p.pending, product)
}

// SendView sends a display hit for one product.
func (p *Products) SendView(product Product) {
	p.host.dispatch(&productDisplay{Base: bo.NewBase(), products: []Product{product}})
}

// SendViews sends one display hit for every queued product.
func (p *Products) SendViews() {
	p.lock.Lock()
	pending := p.pending
	p.pending = nil
	p.lock.Unlock()
	if len(pending) == 0 {
		return
	}
	p.host.dispatch(&productDisplay{Base: bo.NewBase(), products: pending})
}

type productDisplay struct {
	bo.Base
	products []Product
}

func (d *productDisplay) Describe() bo.Descriptor { return bo.Descriptor{Kind: bo.KindProduct} }

func (d *productDisplay) SetParams(b *buffer.Buffer) {
	labels := make([]string, len(d.products))
	for i := range d.products {
		labels[i] = d.products[i].label()
	}
	b.Set(param.New("type", "pdt", param.Options{}))
	b.Set(param.New("pdtl", labels, param.Options{Separator: "|", Encode: true}))
}
