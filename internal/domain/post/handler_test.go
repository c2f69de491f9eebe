package post

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/birdwatch/birdwatch-api/internal/pkg/apperr"
	"github.com/birdwatch/birdwatch-api/internal/pkg/pagination"
)

func TestParseGeoQueryDefaults(t *testing.T) {
	q, err := parseGeoQuery(url.Values{"lat": {"48.85"}, "lon": {"2.35"}}, DefaultMapRadiusKm, mapPageSize)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.RadiusKm != DefaultMapRadiusKm || q.Page != 1 || q.PageSize != mapPageSize {
		t.Fatalf("defaults not applied: %+v", q)
	}

	q, err = parseGeoQuery(url.Values{"lat": {"0"}, "lon": {"0"}, "radius_km": {"0"}}, DefaultMapRadiusKm, mapPageSize)
	if apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("explicit zero radius: expected invalid argument, got %v (%+v)", err, q)
	}
}

func TestNearbyRejectsHugePage(t *testing.T) {
	h := NewHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/nearby?lat=0&lon=0&page=9223372036854775807&limit=2", nil)
	w := httptest.NewRecorder()
	h.Nearby(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestParseGeoQueryRejectsPageBeyondMax(t *testing.T) {
	_, err := parseGeoQuery(url.Values{"lat": {"0"}, "lon": {"0"}, "page": {"2147483648"}}, 10, pagination.DefaultLimit)
	if apperr.KindOf(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
