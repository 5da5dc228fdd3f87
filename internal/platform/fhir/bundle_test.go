package fhir

import (
	"encoding/json"
	"strings"
	"testing"
)

func allergyResource(id string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "AllergyIntolerance",
		"id":           id,
		"patient":      map[string]interface{}{"reference": "Patient/pat-1"},
	}
}

func TestNewSearchBundleWithLinks_Entries(t *testing.T) {
	resources := []interface{}{
		allergyResource("al-1"),
		allergyResource("al-2"),
	}

	b := NewSearchBundleWithLinks(resources, SearchBundleParams{
		BaseURL: "/fhir/AllergyIntolerance",
		Count:   20,
		Total:   2,
	})

	if b.ResourceType != "Bundle" {
		t.Errorf("expected resourceType Bundle, got %s", b.ResourceType)
	}
	if b.Type != "searchset" {
		t.Errorf("expected type searchset, got %s", b.Type)
	}
	if b.Total == nil || *b.Total != 2 {
		t.Error("expected total 2")
	}
	if len(b.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(b.Entry))
	}
	if b.Entry[0].FullURL != "AllergyIntolerance/al-1" {
		t.Errorf("expected fullUrl AllergyIntolerance/al-1, got %s", b.Entry[0].FullURL)
	}
	if b.Entry[0].Search == nil || b.Entry[0].Search.Mode != "match" {
		t.Error("expected search mode match")
	}
}

func TestNewSearchBundleWithLinks_EmptyResults(t *testing.T) {
	b := NewSearchBundleWithLinks(nil, SearchBundleParams{BaseURL: "/fhir/Patient", Count: 20})
	if len(b.Entry) != 0 {
		t.Errorf("expected no entries, got %d", len(b.Entry))
	}
	if b.Total == nil || *b.Total != 0 {
		t.Error("expected total 0")
	}
}

func TestNewSearchBundleWithLinks_EntryResourceRoundTrips(t *testing.T) {
	b := NewSearchBundleWithLinks([]interface{}{allergyResource("al-9")}, SearchBundleParams{
		BaseURL: "/fhir/AllergyIntolerance", Count: 20, Total: 1,
	})

	var decoded map[string]interface{}
	if err := json.Unmarshal(b.Entry[0].Resource, &decoded); err != nil {
		t.Fatalf("entry resource is not valid JSON: %v", err)
	}
	if decoded["id"] != "al-9" {
		t.Errorf("expected id al-9, got %v", decoded["id"])
	}
}

func TestNewSearchBundleWithLinks_MiddlePage(t *testing.T) {
	b := NewSearchBundleWithLinks(nil, SearchBundleParams{
		BaseURL:  "/fhir/AllergyIntolerance",
		QueryStr: "patient=pat-1",
		Count:    10,
		Offset:   10,
		Total:    30,
	})

	rels := map[string]string{}
	for _, l := range b.Link {
		rels[l.Relation] = l.URL
	}
	if len(rels) != 3 {
		t.Fatalf("expected self/next/previous, got %v", rels)
	}
	if !strings.Contains(rels["self"], "patient=pat-1&_count=10&_offset=10") {
		t.Errorf("unexpected self link %s", rels["self"])
	}
	if !strings.Contains(rels["next"], "_offset=20") {
		t.Errorf("unexpected next link %s", rels["next"])
	}
	if !strings.Contains(rels["previous"], "_offset=0") {
		t.Errorf("unexpected previous link %s", rels["previous"])
	}
}

func TestNewSearchBundleWithLinks_FirstPage(t *testing.T) {
	b := NewSearchBundleWithLinks(nil, SearchBundleParams{
		BaseURL: "/fhir/Patient",
		Count:   20,
		Offset:  0,
		Total:   5,
	})

	for _, l := range b.Link {
		if l.Relation == "next" || l.Relation == "previous" {
			t.Errorf("unexpected %s link on a single-page result", l.Relation)
		}
	}
}

func TestNewSearchBundleWithLinks_PreviousClampedToZero(t *testing.T) {
	b := NewSearchBundleWithLinks(nil, SearchBundleParams{
		BaseURL: "/fhir/Patient",
		Count:   20,
		Offset:  5,
		Total:   50,
	})

	for _, l := range b.Link {
		if l.Relation == "previous" && !strings.Contains(l.URL, "_offset=0") {
			t.Errorf("expected previous offset clamped to 0, got %s", l.URL)
		}
	}
}

func TestEntryFullURL_UnusableResource(t *testing.T) {
	if got := entryFullURL(map[string]interface{}{"id": "no-type"}); got != "" {
		t.Errorf("expected empty fullUrl, got %s", got)
	}
	if got := entryFullURL(make(chan int)); got != "" {
		t.Errorf("expected empty fullUrl for unmarshalable value, got %s", got)
	}
}

func TestNewCapabilityStatement(t *testing.T) {
	cs := NewCapabilityStatement("https://ehr.example.org/fhir", []CSResource{
		ReadOnlyCapability("AllergyIntolerance", []CSSearchParam{
			{Name: "patient", Type: "reference"},
			{Name: "clinical-status", Type: "token"},
		}),
		ReadOnlyCapability("Patient", nil),
	})

	if cs.ResourceType != "CapabilityStatement" {
		t.Errorf("expected CapabilityStatement, got %s", cs.ResourceType)
	}
	if cs.FHIRVersion != "4.0.1" {
		t.Errorf("expected FHIR 4.0.1, got %s", cs.FHIRVersion)
	}
	if len(cs.Rest) != 1 || cs.Rest[0].Mode != "server" {
		t.Fatal("expected one server rest section")
	}
	if len(cs.Rest[0].Resource) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(cs.Rest[0].Resource))
	}

	ai := cs.Rest[0].Resource[0]
	if ai.Type != "AllergyIntolerance" {
		t.Errorf("expected AllergyIntolerance, got %s", ai.Type)
	}
	for _, in := range ai.Interaction {
		if in.Code != "read" && in.Code != "search-type" {
			t.Errorf("unexpected write interaction %q advertised", in.Code)
		}
	}
	if len(ai.SearchParam) != 2 {
		t.Errorf("expected 2 search params, got %d", len(ai.SearchParam))
	}
}

func TestFormatReference(t *testing.T) {
	if got := FormatReference("Patient", "pat-1"); got != "Patient/pat-1" {
		t.Errorf("expected Patient/pat-1, got %s", got)
	}
}
