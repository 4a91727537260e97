package weather

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const forecastJSON = `{"code":"200","updateTime":"2026-01-01T08:00+08:00","fxLink":"x",
"daily":[{"fxDate":"2026-01-01","tempMax":"18","tempMin":"9","textDay":"Sunny","humidity":"60"},
{"fxDate":"2026-01-02","tempMax":"17","tempMin":"10","textDay":"Cloudy"}],
"refer":{"sources":["QWeather"],"license":["CC BY-SA 4.0"]}}`

func gz(s string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(s))
	zw.Close()
	return buf.Bytes()
}

func newTestServer(t *testing.T, geoCode string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("location") != "Fuzhou" {
			t.Errorf("lookup query: %s", r.URL.RawQuery)
		}
		w.Write(gz(`{"code":"` + geoCode + `","location":[{"name":"Fuzhou","id":"101230101"}]}`))
	})
	mux.HandleFunc("/v7/weather/7d", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("location") != "101230101" || q.Get("lang") != "en" {
			t.Errorf("forecast query: %s", r.URL.RawQuery)
		}
		w.Write(gz(forecastJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDaily7(t *testing.T) {
	srv := newTestServer(t, "200")
	c := NewClient(srv.Client())
	c.GeoURL, c.WeatherURL = srv.URL, srv.URL

	f, err := c.Daily7(context.Background(), "Fuzhou", "k")
	if err != nil {
		t.Fatalf("Daily7: %v", err)
	}
	if len(f.Daily) != 2 {
		t.Fatalf("days: got %d, want 2", len(f.Daily))
	}
	today, ok := f.Today()
	if !ok || today.TextDay != "Sunny" || today.TempMax != "18" {
		t.Errorf("today: %+v", today)
	}
}

func TestDaily7BadCode(t *testing.T) {
	srv := newTestServer(t, "401")
	c := NewClient(srv.Client())
	c.GeoURL, c.WeatherURL = srv.URL, srv.URL

	if _, err := c.Daily7(context.Background(), "Fuzhou", "k"); !errors.Is(err, ErrCode) {
		t.Errorf("got %v, want ErrCode", err)
	}
}

func TestTodayEmpty(t *testing.T) {
	var f *Forecast
	if _, ok := f.Today(); ok {
		t.Error("nil forecast should have no today")
	}
	if _, ok := (&Forecast{}).Today(); ok {
		t.Error("empty forecast should have no today")
	}
}
