package tracker

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Item identifies a product in a result set
type Item struct {
	ItemID      string `json:"item_id" validate:"required"`
	VariationID string `json:"variation_id,omitempty"`
	ItemName    string `json:"item_name,omitempty"`
}

// ItemDetailLoad is a product detail page view
type ItemDetailLoad struct {
	ItemID      string `json:"item_id" validate:"required"`
	ItemName    string `json:"item_name" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	VariationID string `json:"variation_id,omitempty"`
}

// AutocompleteSelect is a click on an autocomplete suggestion
type AutocompleteSelect struct {
	OriginalQuery string `json:"original_query" validate:"required"`
	Section       string `json:"section" validate:"required"`
	TriggeredBy   string `json:"tr,omitempty"`
	GroupID       string `json:"group_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	ItemID        string `json:"item_id,omitempty"`
	VariationID   string `json:"variation_id,omitempty"`
}

// SearchSubmit is a search submitted from the search box
type SearchSubmit struct {
	OriginalQuery string `json:"original_query" validate:"required"`
	GroupID       string `json:"group_id,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
}

// SearchResultsLoaded is a rendered search results page
type SearchResultsLoaded struct {
	NumResults int      `json:"num_results" validate:"gte=0"`
	ItemIDs    []string `json:"item_ids,omitempty"`
}

// SearchResultClick is a click on a search result
type SearchResultClick struct {
	ItemID      string `json:"item_id" validate:"required"`
	ItemName    string `json:"item_name" validate:"required"`
	VariationID string `json:"variation_id,omitempty"`
	ResultID    string `json:"result_id,omitempty"`
}

// Conversion is an add-to-cart, add-to-wishlist or custom conversion
type Conversion struct {
	ItemID       string  `json:"item_id" validate:"required"`
	ItemName     string  `json:"item_name,omitempty"`
	VariationID  string  `json:"variation_id,omitempty"`
	Revenue      float64 `json:"revenue,omitempty" validate:"gte=0"`
	Type         string  `json:"type,omitempty"`
	DisplayName  string  `json:"display_name,omitempty"`
	IsCustomType bool    `json:"is_custom_type,omitempty"`
	Section      string  `json:"section,omitempty"`
}

// PurchaseItem is one line of an order
type PurchaseItem struct {
	ItemID      string `json:"item_id" validate:"required"`
	VariationID string `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity,omitempty" validate:"gte=0"`
}

// Purchase is a completed order
type Purchase struct {
	Items   []PurchaseItem `json:"items" validate:"required,min=1,dive"`
	Revenue float64        `json:"revenue,omitempty" validate:"gte=0"`
	OrderID string         `json:"order_id,omitempty"`
	Section string         `json:"section,omitempty"`
}

// ResultPage describes where a result set sits in a paginated listing
type ResultPage struct {
	ResultCount          int    `json:"result_count,omitempty" validate:"gte=0"`
	ResultPage           int    `json:"result_page,omitempty" validate:"gte=0"`
	ResultID             string `json:"result_id,omitempty"`
	ResultPositionOnPage int    `json:"result_position_on_page,omitempty" validate:"gte=0"`
	NumResultsPerPage    int    `json:"num_results_per_page,omitempty" validate:"gte=0"`
}

// RecommendationView is a rendered recommendation pod
type RecommendationView struct {
	PodID            string `json:"pod_id" validate:"required"`
	NumResultsViewed int    `json:"num_results_viewed" validate:"gte=0"`
	Items            []Item `json:"items,omitempty" validate:"dive"`
	Section          string `json:"section,omitempty"`
	URL              string `json:"url,omitempty"`
	ResultPage
}

// RecommendationClick is a click on a recommended item
type RecommendationClick struct {
	PodID       string `json:"pod_id" validate:"required"`
	StrategyID  string `json:"strategy_id" validate:"required"`
	ItemID      string `json:"item_id" validate:"required"`
	ItemName    string `json:"item_name,omitempty"`
	VariationID string `json:"variation_id,omitempty"`
	Section     string `json:"section,omitempty"`
	ResultPage
}

// BrowseResultsLoaded is a rendered browse (category, collection) page
type BrowseResultsLoaded struct {
	FilterName      string              `json:"filter_name" validate:"required"`
	FilterValue     string              `json:"filter_value" validate:"required"`
	URL             string              `json:"url" validate:"required"`
	Items           []Item              `json:"items,omitempty" validate:"dive"`
	SelectedFilters map[string][]string `json:"selected_filters,omitempty"`
	SortBy          string              `json:"sort_by,omitempty"`
	SortOrder       string              `json:"sort_order,omitempty"`
	Section         string              `json:"section,omitempty"`
	ResultPage
}

// BrowseResultClick is a click on a browse result
type BrowseResultClick struct {
	FilterName      string              `json:"filter_name" validate:"required"`
	FilterValue     string              `json:"filter_value" validate:"required"`
	ItemID          string              `json:"item_id" validate:"required"`
	ItemName        string              `json:"item_name,omitempty"`
	VariationID     string              `json:"variation_id,omitempty"`
	SelectedFilters map[string][]string `json:"selected_filters,omitempty"`
	Section         string              `json:"section,omitempty"`
	ResultPage
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
