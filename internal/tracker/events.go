package tracker

import (
	"net/url"
	"strconv"
	"strings"
)

// Event names used in logs and metrics
const (
	EventSessionStart        = "session_start"
	EventInputFocus          = "focus"
	EventItemDetailLoad      = "item_detail_load"
	EventAutocompleteSelect  = "autocomplete_select"
	EventSearchSubmit        = "search_submit"
	EventSearchResultsLoaded = "search_results_loaded"
	EventSearchResultClick   = "search_result_click"
	EventConversion          = "conversion"
	EventPurchase            = "purchase"
	EventRecommendationView  = "recommendation_view"
	EventRecommendationClick = "recommendation_click"
	EventBrowseResultsLoaded = "browse_results_loaded"
	EventBrowseResultClick   = "browse_result_click"
)

const (
	defaultSection        = "Products"
	defaultConversionType = "add_to_cart"
	unknownTerm           = "TERM_UNKNOWN"
)

// TrackSessionStart records the start of a session
func (t *Tracker) TrackSessionStart() error {
	t.get(EventSessionStart, "/behavior", url.Values{
		"action": {"session_start"},
		"beacon": {"true"},
	})
	return nil
}

// TrackInputFocus records focus on the search input
func (t *Tracker) TrackInputFocus() error {
	t.get(EventInputFocus, "/behavior", url.Values{
		"action": {"focus"},
		"beacon": {"true"},
	})
	return nil
}

// TrackItemDetailLoad records a product detail page view
func (t *Tracker) TrackItemDetailLoad(p ItemDetailLoad) error {
	if err := t.check(EventItemDetailLoad, p); err != nil {
		return err
	}

	body := map[string]interface{}{
		"item_id":   p.ItemID,
		"item_name": p.ItemName,
		"url":       p.URL,
	}
	putIf(body, "variation_id", p.VariationID)

	t.post(EventItemDetailLoad, "/v2/behavioral_action/item_detail_load", body)
	return nil
}

// TrackAutocompleteSelect records the selection of an autocomplete suggestion
func (t *Tracker) TrackAutocompleteSelect(term string, p AutocompleteSelect) error {
	if err := t.requireTerm(EventAutocompleteSelect, term); err != nil {
		return err
	}
	if err := t.check(EventAutocompleteSelect, p); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("original_query", p.OriginalQuery)
	q.Set("section", p.Section)
	setIf(q, "tr", p.TriggeredBy)
	setIf(q, "group[group_id]", p.GroupID)
	setIf(q, "group[display_name]", p.DisplayName)
	setIf(q, "item_id", p.ItemID)
	setIf(q, "variation_id", p.VariationID)

	t.get(EventAutocompleteSelect, "/autocomplete/"+termPath(term)+"/select", q)
	return nil
}

// TrackSearchSubmit records a search submitted from the search box
func (t *Tracker) TrackSearchSubmit(term string, p SearchSubmit) error {
	if err := t.requireTerm(EventSearchSubmit, term); err != nil {
		return err
	}
	if err := t.check(EventSearchSubmit, p); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("original_query", p.OriginalQuery)
	setIf(q, "group[group_id]", p.GroupID)
	setIf(q, "group[display_name]", p.DisplayName)

	t.get(EventSearchSubmit, "/autocomplete/"+termPath(term)+"/search", q)
	return nil
}

// TrackSearchResultsLoaded records a rendered search results page
func (t *Tracker) TrackSearchResultsLoaded(term string, p SearchResultsLoaded) error {
	if err := t.requireTerm(EventSearchResultsLoaded, term); err != nil {
		return err
	}
	if err := t.check(EventSearchResultsLoaded, p); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("action", "search-results")
	q.Set("term", strings.TrimSpace(term))
	q.Set("num_results", strconv.Itoa(p.NumResults))
	if len(p.ItemIDs) > 0 {
		q.Set("customer_ids", strings.Join(p.ItemIDs, ","))
	}

	t.get(EventSearchResultsLoaded, "/behavior", q)
	return nil
}

// TrackSearchResultClick records a click on a search result
func (t *Tracker) TrackSearchResultClick(term string, p SearchResultClick) error {
	if err := t.requireTerm(EventSearchResultClick, term); err != nil {
		return err
	}
	if err := t.check(EventSearchResultClick, p); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("name", p.ItemName)
	q.Set("customer_id", p.ItemID)
	setIf(q, "variation_id", p.VariationID)
	setIf(q, "result_id", p.ResultID)

	t.get(EventSearchResultClick, "/autocomplete/"+termPath(term)+"/click_through", q)
	return nil
}

// TrackConversion records a conversion. An empty term is reported as
// TERM_UNKNOWN.
func (t *Tracker) TrackConversion(term string, p Conversion) error {
	if err := t.check(EventConversion, p); err != nil {
		return err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		term = unknownTerm
	}

	body := map[string]interface{}{
		"search_term": term,
		"item_id":     p.ItemID,
		"type":        orDefault(p.Type, defaultConversionType),
		"section":     orDefault(p.Section, defaultSection),
	}
	putIf(body, "item_name", p.ItemName)
	putIf(body, "variation_id", p.VariationID)
	putIf(body, "revenue", p.Revenue)
	putIf(body, "display_name", p.DisplayName)
	putIf(body, "is_custom_type", p.IsCustomType)

	t.post(EventConversion, "/v2/behavioral_action/conversion", body)
	return nil
}

// TrackRecommendationView records a rendered recommendation pod
func (t *Tracker) TrackRecommendationView(p RecommendationView) error {
	if err := t.check(EventRecommendationView, p); err != nil {
		return err
	}

	body := map[string]interface{}{
		"pod_id":             p.PodID,
		"num_results_viewed": p.NumResultsViewed,
		"section":            orDefault(p.Section, defaultSection),
	}
	if len(p.Items) > 0 {
		body["items"] = p.Items
	}
	putIf(body, "url", p.URL)
	putResultPage(body, p.ResultPage)

	t.post(EventRecommendationView, "/v2/behavioral_action/recommendation_result_view", body)
	return nil
}

// TrackRecommendationClick records a click on a recommended item
func (t *Tracker) TrackRecommendationClick(p RecommendationClick) error {
	if err := t.check(EventRecommendationClick, p); err != nil {
		return err
	}

	body := map[string]interface{}{
		"pod_id":      p.PodID,
		"strategy_id": p.StrategyID,
		"item_id":     p.ItemID,
		"section":     orDefault(p.Section, defaultSection),
	}
	putIf(body, "item_name", p.ItemName)
	putIf(body, "variation_id", p.VariationID)
	putResultPage(body, p.ResultPage)

	t.post(EventRecommendationClick, "/v2/behavioral_action/recommendation_result_click", body)
	return nil
}

// TrackBrowseResultsLoaded records a rendered browse page
func (t *Tracker) TrackBrowseResultsLoaded(p BrowseResultsLoaded) error {
	if err := t.check(EventBrowseResultsLoaded, p); err != nil {
		return err
	}

	body := map[string]interface{}{
		"filter_name":  p.FilterName,
		"filter_value": p.FilterValue,
		"url":          p.URL,
		"section":      orDefault(p.Section, defaultSection),
	}
	if len(p.Items) > 0 {
		body["items"] = p.Items
	}
	if len(p.SelectedFilters) > 0 {
		body["selected_filters"] = p.SelectedFilters
	}
	putIf(body, "sort_by", p.SortBy)
	putIf(body, "sort_order", p.SortOrder)
	putResultPage(body, p.ResultPage)

	t.post(EventBrowseResultsLoaded, "/v2/behavioral_action/browse_result_load", body)
	return nil
}

// TrackBrowseResultClick records a click on a browse result
func (t *Tracker) TrackBrowseResultClick(p BrowseResultClick) error {
	if err := t.check(EventBrowseResultClick, p); err != nil {
		return err
	}

	body := map[string]interface{}{
		"filter_name":  p.FilterName,
		"filter_value": p.FilterValue,
		"item_id":      p.ItemID,
		"section":      orDefault(p.Section, defaultSection),
	}
	putIf(body, "item_name", p.ItemName)
	putIf(body, "variation_id", p.VariationID)
	if len(p.SelectedFilters) > 0 {
		body["selected_filters"] = p.SelectedFilters
	}
	putResultPage(body, p.ResultPage)

	t.post(EventBrowseResultClick, "/v2/behavioral_action/browse_result_click", body)
	return nil
}

func (t *Tracker) requireTerm(event, term string) error {
	if strings.TrimSpace(term) == "" {
		return t.reject(event, invalid(event, "term is required"))
	}
	return nil
}

func putResultPage(body map[string]interface{}, rp ResultPage) {
	putIf(body, "result_count", rp.ResultCount)
	putIf(body, "result_page", rp.ResultPage)
	putIf(body, "result_id", rp.ResultID)
	putIf(body, "result_position_on_page", rp.ResultPositionOnPage)
	putIf(body, "num_results_per_page", rp.NumResultsPerPage)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
