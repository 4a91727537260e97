package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/power"
	"github.com/sweeney/epaper-display/internal/sensor"
	"github.com/sweeney/epaper-display/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "system", "config"), `{"wifi_password":"secret"}`)
	writeFile(t, filepath.Join(root, "system", "image", "image.bmp"), "BM-not-really")
	writeFile(t, filepath.Join(root, "notes.txt"), "hello")

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Firmware: "2026-01-01 00:00:00",
		Broker:   "tcp://192.168.1.200:1883",
		HTTPAddr: ":80",
		Panel:    "waveshare",
		DataRoot: root,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, root)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr, root
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, url string) (int, http.Header, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp.StatusCode, resp.Header, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetPage(page.Sensor)
	tr.SetCycle(5, 2)
	tr.SetMQTT(true, 0)

	code, hdr, body := get(t, ts.URL+"/index.json")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if ct := hdr.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.Page != "Sensor" {
		t.Errorf("Page: got %q, want Sensor", sj.Status.Page)
	}
	if sj.Status.BootTimes != 5 || sj.Status.LoopTimes != 2 {
		t.Errorf("counters: boot=%d loop=%d", sj.Status.BootTimes, sj.Status.LoopTimes)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{SSID: "MyNet", IP: "192.168.1.42"})

	_, _, body := get(t, ts.URL+"/index.json")
	var sj status.StatusJSON
	json.Unmarshal([]byte(body), &sj)

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.SetPage(page.FullWeather)
	tr.SetSensors(sensor.Snapshot{
		Temperature: physic.ZeroCelsius + 19*physic.Kelvin,
		Humidity:    48 * physic.PercentRH,
		Pressure:    100000 * physic.Pascal,
		Battery:     power.Level100To75,
		Charging:    true,
	})
	tr.SetNetwork(&status.NetworkInfo{SSID: "MyNet", IP: "192.168.1.42"})
	tr.SetLastKey(status.KeyInfo{Index: 2, Click: "TRIPLE", Action: "play"})

	code, hdr, body := get(t, ts.URL+"/")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if ct := hdr.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	for _, want := range []string{"FullWeather", "19.0", "48.0", "1000.0 hPa", "100-75%", "(charging)", "192.168.1.42", "TRIPLE", `href="/files/"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLBeforeFirstReading(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, body := get(t, ts.URL+"/index.html")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "no reading yet") || !strings.Contains(body, "offline") {
		t.Error("expected placeholders before the first reading")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	if code, _, _ := get(t, ts.URL+"/nonexistent"); code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestFilesListing(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, body := get(t, ts.URL+"/files/")
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "system/") || !strings.Contains(body, "notes.txt") {
		t.Errorf("root listing incomplete:\n%s", body)
	}

	code, _, body = get(t, ts.URL+"/files/system/")
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	if !strings.Contains(body, "image/") {
		t.Errorf("system listing missing image/:\n%s", body)
	}
	if strings.Contains(body, `"config"`) || strings.Contains(body, ">config<") {
		t.Errorf("system listing exposes the device config:\n%s", body)
	}
}

func TestFilesDownload(t *testing.T) {
	ts, _, _ := newTestServer(t)

	code, _, body := get(t, ts.URL+"/files/notes.txt")
	if code != 200 || body != "hello" {
		t.Errorf("download: got %d %q", code, body)
	}
	code, _, body = get(t, ts.URL+"/files/system/image/image.bmp")
	if code != 200 || body != "BM-not-really" {
		t.Errorf("nested download: got %d %q", code, body)
	}
}

func TestFilesHidesConfig(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for _, p := range []string{"/files/system/config", "/files/system/./config", "/files/system/image/../config"} {
		code, _, body := get(t, ts.URL+p)
		if code != 404 {
			t.Errorf("%s: got %d, want 404", p, code)
		}
		if strings.Contains(body, "secret") {
			t.Errorf("%s: leaked config contents", p)
		}
	}
}

func TestFilesHidesConfigVariants(t *testing.T) {
	ts, _, root := newTestServer(t)
	for _, name := range []string{"config.tmp", ".config1234", "CONFIG.bak"} {
		writeFile(t, filepath.Join(root, "system", name), `{"wifi_password":"secret"}`)
	}

	for _, p := range []string{"/files/system/config.tmp", "/files/system/.config1234", "/files/system/CONFIG.bak"} {
		if code, _, body := get(t, ts.URL+p); code != 404 || strings.Contains(body, "secret") {
			t.Errorf("%s: got %d", p, code)
		}
	}
	_, _, body := get(t, ts.URL+"/files/system/")
	if strings.Contains(strings.ToLower(body), "config") {
		t.Errorf("system listing exposes a config file:\n%s", body)
	}
}

func TestHiddenFSMatchesCaseInsensitively(t *testing.T) {
	h := newHiddenFS(http.Dir(t.TempDir()), "system/config")
	tests := map[string]bool{
		"/system/config":      true,
		"/SYSTEM/CONFIG":      true,
		"/System/Config.tmp":  true,
		"system/.config99":    true,
		"/system/image/x.bmp": false,
		"/system/conf":        false,
		"/config":             false,
		"/other/config":       false,
	}
	for name, want := range tests {
		if got := h.hides(name); got != want {
			t.Errorf("hides(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFilesDisabledWithoutDataRoot(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, "").httpServer.Handler)
	defer ts.Close()

	if code, _, _ := get(t, ts.URL+"/files/"); code != 404 {
		t.Errorf("status: got %d, want 404", code)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	_, _, body := get(t, ts.URL+"/index.json")
	var sj1 status.StatusJSON
	json.Unmarshal([]byte(body), &sj1)
	if sj1.Status.Page != "None" {
		t.Errorf("initial page: got %q, want None", sj1.Status.Page)
	}

	tr.SetPage(page.About)
	tr.SetOTA("REBOOTING")

	_, _, body = get(t, ts.URL+"/index.json")
	var sj2 status.StatusJSON
	json.Unmarshal([]byte(body), &sj2)
	if sj2.Status.Page != "About" {
		t.Errorf("page: got %q, want About", sj2.Status.Page)
	}
	if sj2.Status.OTA != "REBOOTING" {
		t.Errorf("ota: got %q, want REBOOTING", sj2.Status.OTA)
	}
}
