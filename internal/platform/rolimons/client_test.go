package rolimons

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func newTestClient(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept header = %q", r.Header.Get("Accept"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{ItemDetailsURL: srv.URL + "/itemdetails", TradeAdsURL: srv.URL + "/ads", Timeout: 2 * time.Second})
}

func TestFetchValues(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"success":true,"item_count":2,"items":{
		"1028606":["Red Baseball Cap","",1431,-1,1431,-1,-1,-1,-1,-1],
		"1365767":["Valkyrie Helm","VH",52000,60000,60000,3,2,-1,1,-1]
	}}`)

	items, err := c.FetchValues(context.Background())
	if err != nil {
		t.Fatalf("FetchValues: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	vh := items["1365767"]
	if vh.Value != 60000 || vh.RAP != 52000 || !vh.Hyped || vh.Projected {
		t.Errorf("row = %+v", vh)
	}
	if items["1028606"].HasValue() {
		t.Error("rap-only row reports a value")
	}
}

func TestFetchValuesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantShape bool
	}{
		{"server error", http.StatusInternalServerError, "oops", false},
		{"rate limited", http.StatusTooManyRequests, "", false},
		{"not json", http.StatusOK, "<html>", true},
		{"no items", http.StatusOK, `{"success":true}`, true},
		{"bad row", http.StatusOK, `{"items":{"1":"nope"}}`, true},
		{"unsuccessful", http.StatusOK, `{"success":false,"items":{}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.status, tt.body)
			items, err := c.FetchValues(context.Background())
			if err == nil {
				t.Fatalf("expected error, got %d items", len(items))
			}
			if got := errors.Is(err, domain.ErrBadPayload); got != tt.wantShape {
				t.Errorf("ErrBadPayload = %v, want %v (err: %v)", got, tt.wantShape, err)
			}
		})
	}
}

func TestRecentTraders(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"success":true,"trade_ad_count":4,"trade_ads":[
		[101,1700000000,555,"alice",{"items":[1]},{"tags":["any"]}],
		[102,1700000001,777,"bob",{},{}],
		[103,1700000002,555,"alice",{},{}],
		[104,1700000003]
	]}`)

	ids, err := c.RecentTraders(context.Background())
	if err != nil {
		t.Fatalf("RecentTraders: %v", err)
	}
	if !slices.Equal(ids, []int64{555, 777}) {
		t.Errorf("ids = %v, want [555 777]", ids)
	}
}

func TestRecentTradersUnsuccessful(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"success":false}`)
	if _, err := c.RecentTraders(context.Background()); !errors.Is(err, domain.ErrBadPayload) {
		t.Errorf("err = %v, want ErrBadPayload", err)
	}
}
