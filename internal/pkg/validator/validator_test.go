package validator

import "testing"

type sampleRequest struct {
	Username  string   `json:"username" validate:"required,username"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude_deg"`
	Longitude *float64 `json:"longitude" validate:"required,longitude_deg"`
	Decision  string   `json:"decision" validate:"required,decision_friend"`
}

func ptr(f float64) *float64 { return &f }

func TestValidateAcceptsValidRequest(t *testing.T) {
	req := sampleRequest{Username: "heron_fan", Latitude: ptr(-33.9), Longitude: ptr(151.2), Decision: "ACCEPT"}
	if errs := Validate(&req); errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	req := sampleRequest{Username: "a b", Latitude: ptr(95), Longitude: ptr(-200), Decision: "MAYBE"}
	errs := Validate(&req)

	for _, field := range []string{"username", "latitude", "longitude", "decision"} {
		if _, ok := errs[field]; !ok {
			t.Fatalf("expected error for %s, got %v", field, errs)
		}
	}
}

func TestValidateRequiresCoordinates(t *testing.T) {
	req := sampleRequest{Username: "owl", Decision: "DECLINE"}
	errs := Validate(&req)
	if errs["latitude"] != "This field is required" {
		t.Fatalf("expected required latitude, got %v", errs)
	}
}
