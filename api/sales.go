package api

import (
	"context"
	"strconv"
	"time"
)

// Sale is one row of the sales ledger.
type Sale struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	Customer   string    `json:"customer"`
	Product    string    `json:"product"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SalesQuery captures the ledger's filter, sort, and pagination state.
type SalesQuery struct {
	Page     int
	PageSize int
	Sort     string // field name, "-" prefix for descending
	Status   string
	Search   string
	From     time.Time
	To       time.Time
}

// SalesPage is one page of ledger rows plus the totals the view needs.
type SalesPage struct {
	Sales      []Sale  `json:"sales"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	AmountSum  float64 `json:"amountSum"`
	TotalPages int     `json:"totalPages"`
}

// ListSales fetches a page of the sales ledger.
func (c *Client) ListSales(ctx context.Context, token string, q SalesQuery) (*SalesPage, error) {
	params := map[string]string{
		"status": q.Status,
		"search": q.Search,
		"sort":   q.Sort,
	}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(q.PageSize)
	}
	if !q.From.IsZero() {
		params["from"] = q.From.Format(time.RFC3339)
	}
	if !q.To.IsZero() {
		params["to"] = q.To.Format(time.RFC3339)
	}

	var page SalesPage
	if err := c.get(ctx, "/sales", token, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateSale appends a row to the ledger.
func (c *Client) CreateSale(ctx context.Context, token string, sale Sale) (*Sale, error) {
	var created Sale
	if err := c.post(ctx, "/sales", token, sale, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Customer is one row of the customer registry.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	Phone     string    `json:"phone"`
	Orders    int       `json:"orders"`
	Spend     float64   `json:"spend"`
	CreatedAt time.Time `json:"createdAt"`
}

// CustomerQuery captures registry filter and pagination state.
type CustomerQuery struct {
	Page     int
	PageSize int
	Sort     string
	Search   string
}

// CustomerPage is one page of the customer registry.
type CustomerPage struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageSize  int        `json:"pageSize"`
}

// ListCustomers fetches a page of the customer registry.
func (c *Client) ListCustomers(ctx context.Context, token string, q CustomerQuery) (*CustomerPage, error) {
	params := map[string]string{
		"search": q.Search,
		"sort":   q.Sort,
	}
	if q.Page > 0 {
		params["page"] = strconv.Itoa(q.Page)
	}
	if q.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(q.PageSize)
	}

	var page CustomerPage
	if err := c.get(ctx, "/customers", token, params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetCustomer fetches a single customer by ID.
func (c *Client) GetCustomer(ctx context.Context, token, id string) (*Customer, error) {
	var cust Customer
	if err := c.get(ctx, "/customers/"+id, token, nil, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

// StatsPoint is one bucket of a time series used by the analytics views.
type StatsPoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// Stats aggregates the dashboard's headline numbers and chart series.
type Stats struct {
	TotalRevenue   float64      `json:"totalRevenue"`
	TotalOrders    int          `json:"totalOrders"`
	TotalCustomers int          `json:"totalCustomers"`
	AvgOrderValue  float64      `json:"avgOrderValue"`
	Series         []StatsPoint `json:"series"`
}

// GetStats fetches analytics aggregates for the given range (e.g. "30d").
func (c *Client) GetStats(ctx context.Context, token, window string) (*Stats, error) {
	var stats Stats
	if err := c.get(ctx, "/stats", token, map[string]string{"range": window}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
