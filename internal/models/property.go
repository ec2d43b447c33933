package models

import "time"

// PropertyType classifies a listing
type PropertyType string

const (
	PropertyTypeApartment PropertyType = "APARTMENT"
	PropertyTypeVilla     PropertyType = "VILLA"
	PropertyTypeRowHouse  PropertyType = "ROW_HOUSE"
	PropertyTypePlot      PropertyType = "PLOT"
)

// PropertyStatus is the listing lifecycle state
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "AVAILABLE"
	PropertyStatusReserved  PropertyStatus = "RESERVED"
	PropertyStatusSold      PropertyStatus = "SOLD"
)

// Property represents a rent-to-own listing
type Property struct {
	ID             string         `json:"id"`
	BuilderID      string         `json:"builder_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	PropertyType   PropertyType   `json:"property_type"`
	BHK            int            `json:"bhk"`
	Bathrooms      int            `json:"bathrooms"`
	CarpetArea     float64        `json:"carpet_area"`
	TotalPrice     float64        `json:"total_price"`
	Rent2OwnPrice  float64        `json:"rent2own_price"`
	MonthlyPayment float64        `json:"monthly_payment"`
	TenureYears    int            `json:"tenure_years"`
	Address        string         `json:"address"`
	City           string         `json:"city"`
	State          string         `json:"state"`
	Pincode        string         `json:"pincode"`
	Locality       string         `json:"locality,omitempty"`
	Status         PropertyStatus `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// PropertyFilter narrows a listing query. Zero values mean "no constraint".
type PropertyFilter struct {
	City      string
	MinBudget float64
	MaxBudget float64
	BHK       int
	Type      PropertyType
	Page      int
	Limit     int
}
