// Package catalog holds the list of services offered for sale and prices orders against it.
package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceUnit is the number of units a catalog price is quoted for.
const PriceUnit = 1000

var (
	ErrUnknownService = errors.New("unknown service")
	ErrBelowMinimum   = errors.New("quantity below service minimum")
)

// Service is one sellable offering. Price is quoted per PriceUnit units.
type Service struct {
	Name  string
	Min   int
	Price decimal.Decimal
}

// Catalog is an immutable, ordered set of services looked up by name.
type Catalog struct {
	services []Service
	byName   map[string]int
}

// New builds a catalog. Names must be unique, minimums and prices positive.
func New(services []Service) (*Catalog, error) {
	c := &Catalog{
		services: make([]Service, 0, len(services)),
		byName:   make(map[string]int, len(services)),
	}
	for _, s := range services {
		if s.Name == "" {
			return nil, errors.New("service name must not be empty")
		}
		if _, ok := c.byName[s.Name]; ok {
			return nil, fmt.Errorf("duplicate service %q", s.Name)
		}
		if s.Min <= 0 || !s.Price.IsPositive() {
			return nil, fmt.Errorf("service %q must have a positive minimum and price", s.Name)
		}
		c.byName[s.Name] = len(c.services)
		c.services = append(c.services, s)
	}
	return c, nil
}

// Default returns the catalog the panel ships with.
func Default() *Catalog {
	c, err := New(defaultServices)
	if err != nil {
		panic(err)
	}
	return c
}

// List returns a copy of the services in catalog order.
func (c *Catalog) List() []Service {
	out := make([]Service, len(c.services))
	copy(out, c.services)
	return out
}

// Lookup returns the service with the given name.
func (c *Catalog) Lookup(name string) (Service, bool) {
	idx, ok := c.byName[name]
	if !ok {
		return Service{}, false
	}
	return c.services[idx], true
}

// Quote validates quantity against the named service and returns the order price,
// rounded to cents.
func (c *Catalog) Quote(name string, quantity int) (decimal.Decimal, error) {
	s, ok := c.Lookup(name)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}
	if quantity < s.Min {
		return decimal.Zero, fmt.Errorf("%w: %s requires at least %d", ErrBelowMinimum, name, s.Min)
	}
	return s.PriceFor(quantity), nil
}

// PriceFor returns the price of quantity units rounded to cents.
func (s Service) PriceFor(quantity int) decimal.Decimal {
	return s.Price.Mul(decimal.NewFromInt(int64(quantity))).Div(decimal.NewFromInt(PriceUnit)).Round(2)
}

var defaultServices = []Service{
	{Name: "Telegram channel/group members (30 days)", Min: 10, Price: decimal.NewFromInt(1209)},
	{Name: "Telegram bot stats (worldwide)", Min: 100, Price: decimal.NewFromInt(639)},
	{Name: "Telegram channel comments", Min: 10, Price: decimal.NewFromInt(2997)},
	{Name: "Telegram post views", Min: 100, Price: decimal.NewFromInt(97)},
	{Name: "Telegram story views (worldwide)", Min: 10, Price: decimal.NewFromInt(703)},
	{Name: "Telegram poll votes", Min: 10, Price: decimal.NewFromInt(790)},

	{Name: "TikTok followers (non-drop)", Min: 10, Price: decimal.NewFromInt(1829)},
	{Name: "TikTok likes (non-drop)", Min: 100, Price: decimal.NewFromInt(199)},
	{Name: "TikTok video views", Min: 100, Price: decimal.NewFromInt(157)},
	{Name: "TikTok shares", Min: 100, Price: decimal.NewFromInt(213)},
	{Name: "TikTok USA followers", Min: 10, Price: decimal.NewFromInt(7348)},

	{Name: "Instagram non-drop followers", Min: 10, Price: decimal.NewFromInt(5406)},
	{Name: "Instagram likes", Min: 100, Price: decimal.NewFromInt(672)},
	{Name: "Instagram video/reels views", Min: 100, Price: decimal.NewFromInt(124)},

	{Name: "Facebook profile/page followers", Min: 10, Price: decimal.NewFromInt(690)},
	{Name: "Facebook post likes", Min: 10, Price: decimal.NewFromInt(428)},

	{Name: "YouTube verified account comments", Min: 10, Price: decimal.NewFromInt(2940)},
}
