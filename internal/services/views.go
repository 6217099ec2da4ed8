package services

import (
	"sort"

	"hpipulse/internal/dataset"
)

// ViewDefinition describes a chart view: which value columns of the merged
// table are melted and how the long form is labelled.
type ViewDefinition struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	IDColumns     []string `json:"id_columns"`
	ValueColumns  []string `json:"value_columns"`
	CategoryLabel string   `json:"category_label"`
	ValueLabel    string   `json:"value_label"`
}

// View IDs of the built-in catalog.
const (
	ViewPropertyType     = "property-type"
	ViewBuyerType        = "buyer-type"
	ViewPurchaseType     = "purchase-type"
	ViewBuildType        = "build-type"
	ViewSalesVolumeType  = "sales-volume-type"
	ViewSalesVolumeTotal = "sales-volume-total"
)

var viewCatalog = []ViewDefinition{
	{
		ID:            ViewPropertyType,
		Title:         "Average Price by Property Type",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"Detached_Average_Price", "Semi_Detached_Average_Price", "Terraced_Average_Price", "Flat_Average_Price"},
		CategoryLabel: "Property Type",
		ValueLabel:    "Average Price",
	},
	{
		ID:            ViewBuyerType,
		Title:         "Average Price by Buyer Type",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"First_Time_Buyer_Average_Price", "Former_Owner_Occupier_Average_Price"},
		CategoryLabel: "Buyer Type",
		ValueLabel:    "Average Price",
	},
	{
		ID:            ViewPurchaseType,
		Title:         "Average Price by Purchase Type",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"Cash_Average_Price", "Mortgage_Average_Price"},
		CategoryLabel: "Purchase Type",
		ValueLabel:    "Average Price",
	},
	{
		ID:            ViewBuildType,
		Title:         "Average Price by Build Type",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"New_Build_Average_Price", "Existing_Property_Average_Price"},
		CategoryLabel: "Build Type",
		ValueLabel:    "Average Price",
	},
	{
		ID:            ViewSalesVolumeType,
		Title:         "Sales Volume by Type",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"Cash_Sales_Volume", "Mortgage_Sales_Volume", "New_Build_Sales_Volume", "Existing_Property_Sales_Volume"},
		CategoryLabel: "Sales Type",
		ValueLabel:    "Number of Sales",
	},
	{
		ID:            ViewSalesVolumeTotal,
		Title:         "Total Sales Volume",
		IDColumns:     []string{dataset.ColumnDate},
		ValueColumns:  []string{"Sales_Volume"},
		CategoryLabel: "Measure",
		ValueLabel:    "Number of Sales",
	},
}

// Catalog returns a copy of the built-in views in display order.
func Catalog() []ViewDefinition {
	out := make([]ViewDefinition, len(viewCatalog))
	for i, v := range viewCatalog {
		v.IDColumns = append([]string(nil), v.IDColumns...)
		v.ValueColumns = append([]string(nil), v.ValueColumns...)
		out[i] = v
	}
	return out
}

// LookupView finds a catalog view by ID.
func LookupView(id string) (ViewDefinition, bool) {
	for _, v := range Catalog() {
		if v.ID == id {
			return v, true
		}
	}
	return ViewDefinition{}, false
}

// ViewIDs returns the catalog IDs sorted alphabetically.
func ViewIDs() []string {
	ids := make([]string, 0, len(viewCatalog))
	for _, v := range viewCatalog {
		ids = append(ids, v.ID)
	}
	sort.Strings(ids)
	return ids
}
