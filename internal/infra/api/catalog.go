package api

import (
	"context"
	"net/http"
	"net/url"

	"scrapmarket/internal/domain/catalog"
)

type listingDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	MaterialID  string  `json:"material_id,omitempty"`
	Category    string  `json:"category,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	PriceCents  int64   `json:"price_cents"`
	Currency    string  `json:"currency,omitempty"`
	SellerID    string  `json:"seller_id,omitempty"`
	CompanyID   string  `json:"company_id,omitempty"`
	Status      string  `json:"status,omitempty"`
	Auction     bool    `json:"auction,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type userDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
}

type companyDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country,omitempty"`
	City      string `json:"city,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type materialDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// ListListings returns one page of listings under the given filters.
func (c *Client) ListListings(ctx context.Context, filters catalog.ListingFilters, page, limit int) ([]catalog.Listing, error) {
	filters = filters.Normalized()
	query := pageQuery(page, limit)
	setIf(query, "q", filters.Query)
	setIf(query, "category", filters.Category)
	setIf(query, "material_id", string(filters.MaterialID))
	setIf(query, "company_id", string(filters.CompanyID))
	setIf(query, "status", string(filters.Status))
	if filters.Auction != nil {
		if *filters.Auction {
			query.Set("auction", "true")
		} else {
			query.Set("auction", "false")
		}
	}
	var rows []listingDTO
	if err := c.do(ctx, http.MethodGet, "/listings", query, nil, &rows); err != nil {
		return nil, err
	}
	items := make([]catalog.Listing, 0, len(rows))
	for _, row := range rows {
		items = append(items, catalog.Listing{
			ID:          catalog.ListingID(row.ID),
			Title:       row.Title,
			Description: row.Description,
			MaterialID:  catalog.MaterialID(row.MaterialID),
			Category:    row.Category,
			Quantity:    row.Quantity,
			Unit:        row.Unit,
			PriceCents:  row.PriceCents,
			Currency:    row.Currency,
			SellerID:    row.SellerID,
			CompanyID:   catalog.CompanyID(row.CompanyID),
			Status:      catalog.ListingStatus(row.Status),
			Auction:     row.Auction,
			CreatedAt:   parseTime(row.CreatedAt),
			UpdatedAt:   parseTime(row.UpdatedAt),
		})
	}
	return items, nil
}

// ListUsers returns one page of marketplace users.
func (c *Client) ListUsers(ctx context.Context, filters catalog.UserFilters, page, limit int) ([]catalog.User, error) {
	filters = filters.Normalized()
	query := pageQuery(page, limit)
	setIf(query, "q", filters.Query)
	setIf(query, "company_id", string(filters.CompanyID))
	setIf(query, "role", filters.Role)
	var rows []userDTO
	if err := c.do(ctx, http.MethodGet, "/users", query, nil, &rows); err != nil {
		return nil, err
	}
	items := make([]catalog.User, 0, len(rows))
	for _, row := range rows {
		items = append(items, catalog.User{
			ID:        row.ID,
			Name:      row.Name,
			Email:     row.Email,
			CompanyID: catalog.CompanyID(row.CompanyID),
			Role:      row.Role,
			Active:    row.Active,
			CreatedAt: parseTime(row.CreatedAt),
		})
	}
	return items, nil
}

// ListCompanies returns one page of companies.
func (c *Client) ListCompanies(ctx context.Context, page, limit int) ([]catalog.Company, error) {
	var rows []companyDTO
	if err := c.do(ctx, http.MethodGet, "/companies", pageQuery(page, limit), nil, &rows); err != nil {
		return nil, err
	}
	items := make([]catalog.Company, 0, len(rows))
	for _, row := range rows {
		items = append(items, catalog.Company{
			ID:        catalog.CompanyID(row.ID),
			Name:      row.Name,
			Country:   row.Country,
			City:      row.City,
			CreatedAt: parseTime(row.CreatedAt),
		})
	}
	return items, nil
}

// ListMaterials returns one page of material categories.
func (c *Client) ListMaterials(ctx context.Context, page, limit int) ([]catalog.Material, error) {
	var rows []materialDTO
	if err := c.do(ctx, http.MethodGet, "/materials", pageQuery(page, limit), nil, &rows); err != nil {
		return nil, err
	}
	items := make([]catalog.Material, 0, len(rows))
	for _, row := range rows {
		items = append(items, catalog.Material{
			ID:       catalog.MaterialID(row.ID),
			Name:     row.Name,
			Category: row.Category,
		})
	}
	return items, nil
}

func setIf(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}
