package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAddrevenue_AdvertisersParsesResultsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Path != "/advertisers" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("channelId"); got != "ch-1" {
			t.Errorf("channelId = %q", got)
		}
		fmt.Fprint(w, `{"results":[{"id":"adv-1","displayName":"Nordic Nest","markets":{"SE":true,"NO":true}}]}`)
	}))
	defer srv.Close()

	c := NewAddrevenueClient("test-token", "ch-1")
	c.SetBaseURL(srv.URL)

	advs, err := c.Advertisers(context.Background())
	if err != nil {
		t.Fatalf("Advertisers: %v", err)
	}
	if len(advs) != 1 || advs[0].DisplayName != "Nordic Nest" {
		t.Fatalf("advertisers = %+v", advs)
	}
	if !advs[0].Markets["SE"] {
		t.Error("expected SE market flag")
	}
}

func TestAddrevenue_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAddrevenueClient("bad", "ch-1")
	c.SetBaseURL(srv.URL)

	if _, err := c.Campaigns(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestAwin_PromotionsWalksPagination(t *testing.T) {
	var pagesServed []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req awinPromotionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Filters.RegionCodes) != 1 || req.Filters.RegionCodes[0] != "SE" {
			t.Errorf("region filter = %v", req.Filters.RegionCodes)
		}
		pagesServed = append(pagesServed, req.Pagination.Page)

		resp := awinPromotionsResponse{}
		if req.Pagination.Page == 1 {
			for i := 0; i < awinPageSize; i++ {
				resp.Data = append(resp.Data, Promotion{PromotionID: int64(i + 1), Advertiser: "Ellos"})
			}
		} else if req.Pagination.Page == 2 {
			resp.Data = []Promotion{{PromotionID: 999, Advertiser: "Ellos"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewAwinClient("test-token", "12345")
	c.SetBaseURL(srv.URL)

	promos, err := c.Promotions(context.Background(), "SE")
	if err != nil {
		t.Fatalf("Promotions: %v", err)
	}
	if len(promos) != awinPageSize+1 {
		t.Fatalf("got %d promotions, want %d", len(promos), awinPageSize+1)
	}
	if len(pagesServed) != 2 {
		t.Errorf("pages served = %v, want first two pages", pagesServed)
	}
}

func TestAwin_ProgrammeDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("advertiserId"); got != "777" {
			t.Errorf("advertiserId = %q", got)
		}
		fmt.Fprint(w, `{"programmeInfo":{"id":777,"name":"Ellos","displayUrl":"https://ellos.se","primaryRegion":{"name":"Sweden","countryCode":"SE"}}}`)
	}))
	defer srv.Close()

	c := NewAwinClient("test-token", "12345")
	c.SetBaseURL(srv.URL)

	info, err := c.ProgrammeDetail(context.Background(), 777)
	if err != nil {
		t.Fatalf("ProgrammeDetail: %v", err)
	}
	if info == nil || info.Name != "Ellos" || info.PrimaryRegion.Code != "SE" {
		t.Fatalf("info = %+v", info)
	}
}

func TestAwin_ProgrammeDetailMissingAdvertiserIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewAwinClient("test-token", "12345")
	c.SetBaseURL(srv.URL)

	info, err := c.ProgrammeDetail(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected nil error on 404, got %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil info, got %+v", info)
	}
}
