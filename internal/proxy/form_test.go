package proxy

import "testing"

func TestBuildFormFieldsLossyKeepsOnlyStrings(t *testing.T) {
	res, err := buildFormFields(`{"a":"1","b":true,"c":[1],"d":"x y"}`, FormLossy)
	if err != nil {
		t.Fatalf("buildFormFields: %v", err)
	}
	if len(res.fields) != 2 || res.fields["a"] != "1" || res.fields["d"] != "x y" {
		t.Fatalf("unexpected fields %#v", res.fields)
	}
	if len(res.dropped) != 2 || res.dropped[0] != "b" || res.dropped[1] != "c" {
		t.Fatalf("unexpected dropped %#v", res.dropped)
	}
}

func TestBuildFormFieldsLossyToleratesInvalidJSON(t *testing.T) {
	for _, body := range []string{"", "not json", `["a"]`, `"str"`} {
		res, err := buildFormFields(body, FormLossy)
		if err != nil {
			t.Fatalf("buildFormFields(%q): %v", body, err)
		}
		if len(res.fields) != 0 {
			t.Fatalf("expected no fields for %q, got %#v", body, res.fields)
		}
		if res.invalid == nil {
			t.Fatalf("expected parse error to be recorded for %q", body)
		}
	}
}

func TestBuildFormFieldsStrict(t *testing.T) {
	res, err := buildFormFields(`{"a":"1"}`, FormStrict)
	if err != nil {
		t.Fatalf("buildFormFields: %v", err)
	}
	if res.fields["a"] != "1" {
		t.Fatalf("unexpected fields %#v", res.fields)
	}

	if _, err := buildFormFields(`{"a":1}`, FormStrict); err == nil {
		t.Fatalf("expected error for numeric field")
	}
	if _, err := buildFormFields(`{`, FormStrict); err == nil {
		t.Fatalf("expected error for broken JSON")
	}
}
