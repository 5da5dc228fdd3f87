package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bundle is the FHIR Bundle envelope. Only searchset bundles are produced
// here; the write side of the API is plain JSON under /api/v1.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// SearchBundleParams carries the request context a paginated searchset
// needs to reconstruct its self/next/previous URLs.
type SearchBundleParams struct {
	BaseURL  string
	QueryStr string
	Count    int
	Offset   int
	Total    int
}

// NewSearchBundleWithLinks wraps resources in a searchset Bundle. Each
// entry gets a Type/id fullUrl and search mode "match"; self/next/previous
// links are derived from count, offset, and total.
func NewSearchBundleWithLinks(resources []interface{}, params SearchBundleParams) *Bundle {
	now := time.Now().UTC()
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &params.Total,
		Timestamp:    &now,
		Link:         pagingLinks(params),
		Entry:        searchEntries(resources),
	}
}

func searchEntries(resources []interface{}) []BundleEntry {
	entries := make([]BundleEntry, len(resources))
	for i, r := range resources {
		raw, _ := json.Marshal(r)
		entries[i] = BundleEntry{
			FullURL:  entryFullURL(r),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		}
	}
	return entries
}

// entryFullURL derives "Type/id" from a resource's own fields. Resources
// here are the map payloads the domain ToFHIR builders produce.
func entryFullURL(r interface{}) string {
	m, ok := r.(map[string]interface{})
	if !ok {
		data, err := json.Marshal(r)
		if err != nil {
			return ""
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return ""
		}
	}
	rt, _ := m["resourceType"].(string)
	id, _ := m["id"].(string)
	if rt == "" || id == "" {
		return ""
	}
	return rt + "/" + id
}

func pagingLinks(params SearchBundleParams) []BundleLink {
	pageURL := func(offset int) string {
		qs := params.QueryStr
		if qs != "" {
			qs += "&"
		}
		return fmt.Sprintf("%s?%s_count=%d&_offset=%d", params.BaseURL, qs, params.Count, offset)
	}

	links := []BundleLink{{Relation: "self", URL: pageURL(params.Offset)}}
	if params.Offset+params.Count < params.Total {
		links = append(links, BundleLink{Relation: "next", URL: pageURL(params.Offset + params.Count)})
	}
	if params.Offset > 0 {
		prev := params.Offset - params.Count
		if prev < 0 {
			prev = 0
		}
		links = append(links, BundleLink{Relation: "previous", URL: pageURL(prev)})
	}
	return links
}

// CapabilityStatement is the /fhir/metadata payload.
type CapabilityStatement struct {
	ResourceType   string            `json:"resourceType"`
	Status         string            `json:"status"`
	Date           string            `json:"date"`
	Kind           string            `json:"kind"`
	FHIRVersion    string            `json:"fhirVersion"`
	Format         []string          `json:"format"`
	Implementation *CSImplementation `json:"implementation,omitempty"`
	Rest           []CSRest          `json:"rest"`
}

type CSImplementation struct {
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

type CSRest struct {
	Mode     string       `json:"mode"`
	Resource []CSResource `json:"resource"`
}

type CSResource struct {
	Type        string          `json:"type"`
	Interaction []CSInteraction `json:"interaction"`
	SearchParam []CSSearchParam `json:"searchParam,omitempty"`
}

type CSInteraction struct {
	Code string `json:"code"`
}

type CSSearchParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// NewCapabilityStatement describes this server: FHIR R4, JSON only, and a
// read-only REST surface over the given resources. Writes go through the
// reconciling /api/v1 endpoints, so no write interactions are advertised.
func NewCapabilityStatement(baseURL string, resources []CSResource) *CapabilityStatement {
	return &CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         time.Now().UTC().Format("2006-01-02"),
		Kind:         "instance",
		FHIRVersion:  "4.0.1",
		Format:       []string{"json"},
		Implementation: &CSImplementation{
			Description: "Patient allergy list FHIR R4 service",
			URL:         baseURL,
		},
		Rest: []CSRest{{Mode: "server", Resource: resources}},
	}
}

// ReadOnlyCapability builds the CSResource entry for a resource exposed
// with read and search-type only.
func ReadOnlyCapability(resourceType string, searchParams []CSSearchParam) CSResource {
	return CSResource{
		Type: resourceType,
		Interaction: []CSInteraction{
			{Code: "read"},
			{Code: "search-type"},
		},
		SearchParam: searchParams,
	}
}

// FormatReference renders a local "Type/id" reference string.
func FormatReference(resourceType, id string) string {
	return resourceType + "/" + id
}
