// Package weather fetches daily forecasts from the QWeather API.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sweeney/epaper-display/internal/network"
)

// Default API hosts.
const (
	DefaultGeoURL     = "https://geoapi.qweather.com"
	DefaultWeatherURL = "https://devapi.qweather.com"
)

// ErrCode is wrapped when the API answers with a code other than "200".
var ErrCode = errors.New("weather: api error")

// Forecast is the 7-day forecast response, cached in the device config.
type Forecast struct {
	Code       string  `json:"code"`
	UpdateTime string  `json:"updateTime"`
	FxLink     string  `json:"fxLink"`
	Daily      []Daily `json:"daily"`
	Refer      Refer   `json:"refer"`
}

// Daily is one forecast day. Values are strings as the API sends them.
type Daily struct {
	FxDate         string `json:"fxDate"`
	Sunrise        string `json:"sunrise"`
	Sunset         string `json:"sunset"`
	Moonrise       string `json:"moonrise"`
	Moonset        string `json:"moonset"`
	MoonPhase      string `json:"moonPhase"`
	MoonPhaseIcon  string `json:"moonPhaseIcon"`
	TempMax        string `json:"tempMax"`
	TempMin        string `json:"tempMin"`
	IconDay        string `json:"iconDay"`
	TextDay        string `json:"textDay"`
	IconNight      string `json:"iconNight"`
	TextNight      string `json:"textNight"`
	Wind360Day     string `json:"wind360Day"`
	WindDirDay     string `json:"windDirDay"`
	WindScaleDay   string `json:"windScaleDay"`
	WindSpeedDay   string `json:"windSpeedDay"`
	Wind360Night   string `json:"wind360Night"`
	WindDirNight   string `json:"windDirNight"`
	WindScaleNight string `json:"windScaleNight"`
	WindSpeedNight string `json:"windSpeedNight"`
	Humidity       string `json:"humidity"`
	Precip         string `json:"precip"`
	Pressure       string `json:"pressure"`
	Vis            string `json:"vis"`
	Cloud          string `json:"cloud"`
	UVIndex        string `json:"uvIndex"`
}

// Refer carries attribution.
type Refer struct {
	Sources []string `json:"sources"`
	License []string `json:"license"`
}

// Today returns the first forecast day, if any.
func (f *Forecast) Today() (Daily, bool) {
	if f == nil || len(f.Daily) == 0 {
		return Daily{}, false
	}
	return f.Daily[0], true
}

type geoResponse struct {
	Code     string     `json:"code"`
	Location []Location `json:"location"`
}

// Location is a city lookup result.
type Location struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Adm2    string `json:"adm2"`
	Adm1    string `json:"adm1"`
	Country string `json:"country"`
	TZ      string `json:"tz"`
}

// Client queries the geo and forecast endpoints.
type Client struct {
	GeoURL     string
	WeatherURL string
	http       *http.Client
}

// NewClient returns a client for the public QWeather hosts.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: network.DefaultTimeout}
	}
	return &Client{GeoURL: DefaultGeoURL, WeatherURL: DefaultWeatherURL, http: httpClient}
}

// CityID resolves a city name to its location id.
func (c *Client) CityID(ctx context.Context, city, key string) (string, error) {
	q := url.Values{"key": {key}, "location": {city}}
	var resp geoResponse
	if err := network.GetJSON(ctx, c.http, c.GeoURL+"/v2/city/lookup?"+q.Encode(), &resp); err != nil {
		return "", fmt.Errorf("city lookup: %w", err)
	}
	if resp.Code != "200" {
		return "", fmt.Errorf("city lookup: %w: code %s", ErrCode, resp.Code)
	}
	if len(resp.Location) == 0 {
		return "", fmt.Errorf("city lookup: no match for %q", city)
	}
	return resp.Location[0].ID, nil
}

// Daily7 fetches the 7-day forecast for city.
func (c *Client) Daily7(ctx context.Context, city, key string) (*Forecast, error) {
	id, err := c.CityID(ctx, city, key)
	if err != nil {
		return nil, err
	}
	q := url.Values{"key": {key}, "location": {id}, "lang": {"en"}}
	var f Forecast
	if err := network.GetJSON(ctx, c.http, c.WeatherURL+"/v7/weather/7d?"+q.Encode(), &f); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if f.Code != "200" {
		return nil, fmt.Errorf("forecast: %w: code %s", ErrCode, f.Code)
	}
	return &f, nil
}
