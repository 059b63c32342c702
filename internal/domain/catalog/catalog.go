package catalog

import (
	"strings"
	"time"
)

// Entity kinds browsed through the paged catalog endpoints.

type ListingID string
type CompanyID string
type MaterialID string

type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
	ListingClosed ListingStatus = "closed"
)

// Listing is a recycled-materials sale offer.
type Listing struct {
	ID          ListingID
	Title       string
	Description string
	MaterialID  MaterialID
	Category    string
	Quantity    float64
	Unit        string
	PriceCents  int64
	Currency    string
	SellerID    string
	CompanyID   CompanyID
	Status      ListingStatus
	Auction     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is the marketplace profile shape needed by the browsing lists.
type User struct {
	ID        string
	Name      string
	Email     string
	CompanyID CompanyID
	Role      string
	Active    bool
	CreatedAt time.Time
}

// Company groups seller accounts.
type Company struct {
	ID        CompanyID
	Name      string
	Country   string
	City      string
	CreatedAt time.Time
}

// Material is a recyclable material category entry.
type Material struct {
	ID       MaterialID
	Name     string
	Category string
}

// ListingFilters narrows a listings page fetch. Zero values mean no filter.
type ListingFilters struct {
	Query      string
	Category   string
	MaterialID MaterialID
	CompanyID  CompanyID
	Status     ListingStatus
	Auction    *bool
}

// UserFilters narrows a users page fetch.
type UserFilters struct {
	Query     string
	CompanyID CompanyID
	Role      string
}

// Normalized trims free-text filter fields.
func (f ListingFilters) Normalized() ListingFilters {
	f.Query = strings.TrimSpace(f.Query)
	f.Category = strings.TrimSpace(f.Category)
	return f
}

// Normalized trims free-text filter fields.
func (f UserFilters) Normalized() UserFilters {
	f.Query = strings.TrimSpace(f.Query)
	f.Role = strings.TrimSpace(f.Role)
	return f
}
