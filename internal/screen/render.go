package screen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/sweeney/epaper-display/internal/config"
	"github.com/sweeney/epaper-display/internal/page"
	"github.com/sweeney/epaper-display/internal/sensor"
)

// Canvas is the landscape frame size of the 2.13" panel.
var Canvas = image.Pt(250, 122)

// ImagePath is the picture shown on the Image page, relative to the data
// root.
const ImagePath = "system/image/image.bmp"

const titleHeight = 16

// Renderer composes page frames.
type Renderer struct {
	config   func() config.DeviceConfig
	dataRoot string
	size     image.Point
	now      func() time.Time

	clock  font.Face
	medium font.Face
	small  font.Face
}

// NewRenderer creates a renderer. cfg is called on every frame for the
// values the pages show.
func NewRenderer(dataRoot string, cfg func() config.DeviceConfig) (*Renderer, error) {
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	return &Renderer{
		config:   cfg,
		dataRoot: dataRoot,
		size:     Canvas,
		now:      time.Now,
		clock:    truetype.NewFace(bold, &truetype.Options{Size: 44}),
		medium:   truetype.NewFace(regular, &truetype.Options{Size: 15}),
		small:    basicfont.Face7x13,
	}, nil
}

// Compose draws page p, and popup over it when non-nil. page.None yields a
// blank frame.
func (r *Renderer) Compose(p page.ActivePage, snap sensor.Snapshot, popup *Popup) (image.Image, error) {
	cfg := r.config()
	now := r.now().In(cfg.Location())

	dc := gg.NewContext(r.size.X, r.size.Y)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetLineWidth(1)

	switch p {
	case page.Home:
		r.home(dc, cfg, snap, now)
	case page.Sensor:
		r.sensor(dc, cfg, snap)
	case page.Image:
		if err := r.image(dc); err != nil {
			return nil, err
		}
	case page.FullTime:
		r.fullTime(dc, now)
	case page.Setting:
		r.setting(dc, cfg)
	case page.FullWeather:
		r.fullWeather(dc, cfg)
	case page.About:
		r.about(dc, cfg)
	case page.None:
	default:
		return nil, fmt.Errorf("unknown page %v", p)
	}

	if popup != nil {
		r.popup(dc, *popup)
	}
	return dc.Image(), nil
}

func (r *Renderer) titleBar(dc *gg.Context, cfg config.DeviceConfig, snap sensor.Snapshot) {
	w := float64(r.size.X)
	dc.SetFontFace(r.small)
	net := "offline"
	if cfg.IPInfo != nil && cfg.IPInfo.IP != "" {
		net = cfg.IPInfo.IP
	}
	dc.DrawString(net, 3, 12)
	bat := "BAT " + snap.Battery.String() + "%"
	if snap.Charging {
		bat += " +"
	}
	dc.DrawStringAnchored(bat, w-3, 12, 1, 0)
	dc.DrawLine(0, titleHeight+0.5, w, titleHeight+0.5)
	dc.Stroke()
}

func (r *Renderer) home(dc *gg.Context, cfg config.DeviceConfig, snap sensor.Snapshot, now time.Time) {
	r.titleBar(dc, cfg, snap)

	dc.SetFontFace(r.clock)
	dc.DrawStringAnchored(now.Format("15:04"), 72, 66, 0.5, 0)
	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(now.Format("Mon 2006-01-02"), 72, 86, 0.5, 0)
	dc.DrawLine(146.5, titleHeight, 146.5, float64(r.size.Y))
	dc.Stroke()

	x := 152.0
	dc.DrawString(cfg.CityName, x, 32)
	if today, ok := cfg.Weather.Today(); ok {
		dc.SetFontFace(r.medium)
		dc.DrawString(today.TextDay, x, 54)
		dc.SetFontFace(r.small)
		dc.DrawString(fmt.Sprintf("%s~%s C", today.TempMin, today.TempMax), x, 72)
	} else {
		dc.DrawString("no weather", x, 54)
	}
	dc.DrawString(fmt.Sprintf("%.1f C %.0f%%", snap.Celsius(), snap.HumidityPercent()), x, 100)
}

func (r *Renderer) sensor(dc *gg.Context, cfg config.DeviceConfig, snap sensor.Snapshot) {
	r.titleBar(dc, cfg, snap)

	pres := "--"
	if snap.Pressure != 0 {
		pres = fmt.Sprintf("%.1f hPa", snap.HectoPascal())
	}
	rows := [][2]string{
		{"TEMP", fmt.Sprintf("%.1f C", snap.Celsius())},
		{"HUMI", fmt.Sprintf("%.1f %%", snap.HumidityPercent())},
		{"PRES", pres},
	}
	dc.SetFontFace(r.medium)
	for i, row := range rows {
		y := 44 + float64(i)*28
		dc.DrawString(row[0], 12, y)
		dc.DrawStringAnchored(row[1], float64(r.size.X)-12, y, 1, 0)
	}
}

func (r *Renderer) fullTime(dc *gg.Context, now time.Time) {
	cx := float64(r.size.X) / 2
	dc.SetFontFace(r.clock)
	dc.DrawStringAnchored(now.Format("15:04"), cx, 70, 0.5, 0)
	dc.SetFontFace(r.medium)
	dc.DrawStringAnchored(now.Format("Monday, Jan 2 2006"), cx, 100, 0.5, 0)
}

func (r *Renderer) setting(dc *gg.Context, cfg config.DeviceConfig) {
	r.lines(dc, "SETTINGS", []string{
		"SSID  " + cfg.WiFiSSID,
		fmt.Sprintf("WIFI  every %d boots, %ds", cfg.WiFiConnectInterval, cfg.WiFiMaxLinkTime),
		"ZONE  " + cfg.TimeZone,
		"CITY  " + cfg.CityName,
		fmt.Sprintf("OTA   every %d min", cfg.RequeryUpgradeTimeMinutes),
		fmt.Sprintf("BOOT  %d", cfg.BootTimes),
	})
}

func (r *Renderer) fullWeather(dc *gg.Context, cfg config.DeviceConfig) {
	var rows []string
	if cfg.Weather != nil {
		for i, d := range cfg.Weather.Daily {
			if i == 3 {
				break
			}
			rows = append(rows, fmt.Sprintf("%-6s %-12s %s~%s C", shortDate(d.FxDate), d.TextDay, d.TempMin, d.TempMax))
		}
	}
	if len(rows) == 0 {
		rows = []string{"no weather"}
	}
	r.lines(dc, "WEATHER "+cfg.CityName, rows)
}

func (r *Renderer) about(dc *gg.Context, cfg config.DeviceConfig) {
	ip := "--"
	if cfg.IPInfo != nil {
		ip = cfg.IPInfo.IP
	}
	r.lines(dc, "ABOUT", []string{
		"SSID  " + cfg.WiFiSSID,
		"PASS  " + cfg.WiFiPassword,
		"IP    " + ip,
		"VER   " + cfg.DeviceInfo.Version,
		"TYPE  " + cfg.DeviceInfo.DeviceType,
	})
}

func (r *Renderer) lines(dc *gg.Context, title string, rows []string) {
	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(title, float64(r.size.X)/2, 12, 0.5, 0)
	dc.DrawLine(0, titleHeight+0.5, float64(r.size.X), titleHeight+0.5)
	dc.Stroke()
	for i, s := range rows {
		dc.DrawString(s, 6, 32+float64(i)*16)
	}
}

func (r *Renderer) image(dc *gg.Context) error {
	f, err := os.Open(filepath.Join(r.dataRoot, ImagePath))
	if errors.Is(err, fs.ErrNotExist) {
		dc.SetFontFace(r.medium)
		dc.DrawStringAnchored("no image", float64(r.size.X)/2, float64(r.size.Y)/2, 0.5, 0.5)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	src, err := bmp.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	dst := image.NewRGBA(fitRect(src.Bounds().Size(), r.size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	dc.DrawImageAnchored(dst, r.size.X/2, r.size.Y/2, 0.5, 0.5)
	return nil
}

// fitRect scales src to fit inside bound, keeping the aspect ratio.
func fitRect(src, bound image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{}
	}
	w, h := bound.X, src.Y*bound.X/src.X
	if h > bound.Y {
		w, h = src.X*bound.Y/src.Y, bound.Y
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Rect(0, 0, w, h)
}

// PopupRect is the box a popup occupies on a frame of the given size:
// 60% by 40%, centred.
func PopupRect(size image.Point) image.Rectangle {
	w, h := size.X*60/100, size.Y*40/100
	origin := image.Pt((size.X-w)/2, (size.Y-h)/2)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
}

func (r *Renderer) popup(dc *gg.Context, p Popup) {
	box := PopupRect(r.size)
	x, y := float64(box.Min.X), float64(box.Min.Y)
	w, h := float64(box.Dx()), float64(box.Dy())

	dc.SetColor(color.White)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x+1, y+1, w-2, h-2)
	dc.Stroke()
	dc.SetLineWidth(1)

	dc.SetFontFace(r.small)
	dc.DrawStringAnchored(p.Title, x+w/2, y+14, 0.5, 0)
	dc.DrawLine(x, y+18.5, x+w, y+18.5)
	dc.Stroke()
	dc.DrawStringWrapped(p.Message, x+w/2, y+22, 0.5, 0, w-8, 1.2, gg.AlignCenter)
}

func shortDate(fxDate string) string {
	t, err := time.Parse("2006-01-02", fxDate)
	if err != nil {
		return fxDate
	}
	return t.Format("01-02")
}
