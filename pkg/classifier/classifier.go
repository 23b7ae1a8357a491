package classifier

import "storyfetch/pkg/models"

// IsValid reports whether a raw scrape outcome carries enough signal to be
// worth caching. An explicit success flag short-circuits everything else;
// otherwise the decision is method-specific: the browser backend must have
// found media items, the HTTP probe must have seen at least one form, input
// or sample image on the page.
//
// Anything that is not a keyed record is invalid, as is a record produced
// by an unknown method. Missing or wrongly typed fields count as zero/empty
// rather than failing.
func IsValid(v interface{}) bool {
	result, ok := toResult(v)
	if !ok {
		return false
	}

	if success, ok := result["success"].(bool); ok && success {
		return true
	}

	switch result.Method() {
	case models.MethodBrowser:
		return result.Int("media_items_found") > 0 || len(result.List("media_items")) > 0
	case models.MethodHTTP:
		return result.Int("forms_found") > 0 ||
			result.Int("inputs_found") > 0 ||
			len(result.List("sample_images")) > 0
	default:
		return false
	}
}

func toResult(v interface{}) (models.ScrapeResult, bool) {
	switch m := v.(type) {
	case models.ScrapeResult:
		return m, m != nil
	case map[string]interface{}:
		return models.ScrapeResult(m), m != nil
	default:
		return nil, false
	}
}
