package clob

import (
	"testing"
	"time"
)

func TestParseHistoryEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"history envelope", `{"history":[{"t":1767225600,"p":0.42},{"t":1767229200,"p":"0.44"}]}`, 2},
		{"bare array", `[{"t":1767225600,"p":0.42}]`, 1},
		{"millisecond stamps", `{"prices":[{"t":1767225600000,"p":0.5}]}`, 1},
		{"drops bad points", `{"data":[{"t":0,"p":0.5},{"t":1767225600,"p":0}]}`, 0},
		{"garbage", `not json`, 0},
	}
	for _, tc := range cases {
		points, err := parseHistory([]byte(tc.raw))
		if tc.name == "garbage" {
			if err == nil {
				t.Errorf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(points) != tc.want {
			t.Errorf("%s: got %d points, want %d", tc.name, len(points), tc.want)
		}
	}
}

func TestParseHistoryTimestampUnits(t *testing.T) {
	points, err := parseHistory([]byte(`[{"t":1767225600,"p":0.42},{"t":1767225600000,"p":0.42}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points", len(points))
	}
	if !points[0].TS.Equal(points[1].TS) {
		t.Errorf("second and millisecond stamps disagree: %v vs %v", points[0].TS, points[1].TS)
	}
}

func TestParsePriceUpdates(t *testing.T) {
	raw := []byte(`[
		{"event_type":"last_trade_price","asset_id":"a1","market":"m1","price":"0.63","timestamp":"1767225600000"},
		{"event_type":"book","asset_id":"a1","market":"m1"},
		{"event_type":"last_trade_price","asset_id":"a2","market":"m2","price":"not a number"},
		{"event_type":"last_trade_price","asset_id":"","price":"0.5"}
	]`)
	updates := parsePriceUpdates(raw)
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	u := updates[0]
	if u.AssetID != "a1" || u.Market != "m1" || u.Price != 0.63 {
		t.Errorf("unexpected update: %+v", u)
	}
	if !u.Timestamp.Equal(time.UnixMilli(1767225600000).UTC()) {
		t.Errorf("timestamp = %v", u.Timestamp)
	}
}

func TestParsePriceUpdatesSingleObject(t *testing.T) {
	updates := parsePriceUpdates([]byte(`{"event_type":"last_trade_price","asset_id":"a1","price":"0.5","timestamp":"1767225600000"}`))
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
}

func TestIsPing(t *testing.T) {
	for _, raw := range []string{`ping`, ` ping `, `{"type":"ping"}`, `{"event_type":"PING"}`} {
		if !isPing([]byte(raw)) {
			t.Errorf("%q not recognised as ping", raw)
		}
	}
	for _, raw := range []string{``, `{"event_type":"last_trade_price"}`, `pong`} {
		if isPing([]byte(raw)) {
			t.Errorf("%q misread as ping", raw)
		}
	}
}
