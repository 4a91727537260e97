package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/Wifx/gonetworkmanager/v2"
)

// IPInfo describes the station interface once associated.
type IPInfo struct {
	IP      string `json:"ip"`
	Netmask string `json:"netmask,omitempty"`
	Gateway string `json:"gateway,omitempty"`
	DNS     string `json:"dns,omitempty"`
}

// WiFi joins a network.
type WiFi interface {
	// Connect associates with ssid and waits up to timeout for an address.
	Connect(ctx context.Context, ssid, password string, timeout time.Duration) (IPInfo, error)
}

// ErrNoSSID is returned when no network is configured.
var ErrNoSSID = errors.New("wifi: no ssid configured")

// ProfileID names the NetworkManager connection profile the display owns.
// Each join replaces it.
const ProfileID = "epaper-display"

// NMWiFi joins networks through NetworkManager over the system D-Bus.
type NMWiFi struct {
	Interface string
	Poll      time.Duration

	nm       gonetworkmanager.NetworkManager
	settings gonetworkmanager.Settings
}

// NewNMWiFi returns a WiFi that drives iface (e.g. "wlan0"). The D-Bus
// connection is made on the first Connect.
func NewNMWiFi(iface string) *NMWiFi {
	return &NMWiFi{Interface: iface, Poll: time.Second}
}

func (n *NMWiFi) dial() error {
	if n.nm != nil {
		return nil
	}
	nm, err := gonetworkmanager.NewNetworkManager()
	if err != nil {
		return fmt.Errorf("networkmanager: %w", err)
	}
	settings, err := gonetworkmanager.NewSettings()
	if err != nil {
		return fmt.Errorf("networkmanager settings: %w", err)
	}
	n.nm, n.settings = nm, settings
	return nil
}

// Connect replaces the display's profile with one for ssid, activates it on
// the interface and polls the device once per Poll until it is activated
// with an IPv4 address or timeout expires.
func (n *NMWiFi) Connect(ctx context.Context, ssid, password string, timeout time.Duration) (IPInfo, error) {
	if ssid == "" {
		return IPInfo{}, ErrNoSSID
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := n.dial(); err != nil {
		return IPInfo{}, err
	}
	dev, err := n.nm.GetDeviceByIpIface(n.Interface)
	if err != nil {
		return IPInfo{}, fmt.Errorf("find device %s: %w", n.Interface, err)
	}
	if err := n.forget(); err != nil {
		return IPInfo{}, err
	}
	if _, err := n.nm.AddAndActivateConnection(profile(ssid, password, n.Interface), dev); err != nil {
		return IPInfo{}, fmt.Errorf("activate %q: %w", ssid, err)
	}

	ticker := time.NewTicker(n.Poll)
	defer ticker.Stop()
	for {
		state, err := dev.GetPropertyState()
		if err != nil {
			return IPInfo{}, fmt.Errorf("device state: %w", err)
		}
		switch state {
		case gonetworkmanager.NmDeviceStateActivated:
			if info, err := ip4Info(dev); err == nil && info.IP != "" {
				return info, nil
			}
		case gonetworkmanager.NmDeviceStateFailed:
			return IPInfo{}, fmt.Errorf("join %q: device %s failed", ssid, n.Interface)
		}
		select {
		case <-ctx.Done():
			return IPInfo{}, fmt.Errorf("wait for address on %s: %w", n.Interface, ctx.Err())
		case <-ticker.C:
		}
	}
}

// forget deletes every profile named ProfileID.
func (n *NMWiFi) forget() error {
	conns, err := n.settings.ListConnections()
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}
	for _, c := range conns {
		s, err := c.GetSettings()
		if err != nil {
			continue
		}
		if id, _ := s["connection"]["id"].(string); id != ProfileID {
			continue
		}
		if err := c.Delete(); err != nil {
			return fmt.Errorf("delete old profile: %w", err)
		}
	}
	return nil
}

func profile(ssid, password, iface string) gonetworkmanager.ConnectionSettings {
	s := gonetworkmanager.ConnectionSettings{
		"connection": {
			"id":             ProfileID,
			"type":           "802-11-wireless",
			"interface-name": iface,
		},
		"802-11-wireless": {
			"ssid": []byte(ssid),
			"mode": "infrastructure",
		},
		"ipv4": {"method": "auto"},
		"ipv6": {"method": "ignore"},
	}
	if password != "" {
		s["802-11-wireless"]["security"] = "802-11-wireless-security"
		s["802-11-wireless-security"] = map[string]interface{}{
			"key-mgmt": "wpa-psk",
			"psk":      password,
		}
	}
	return s
}

// ip4Info reads the first IPv4 address, the gateway and the first name
// server of dev.
func ip4Info(dev gonetworkmanager.Device) (IPInfo, error) {
	cfg, err := dev.GetPropertyIP4Config()
	if err != nil {
		return IPInfo{}, err
	}
	if cfg == nil {
		return IPInfo{}, nil
	}
	addrs, err := cfg.GetPropertyAddressData()
	if err != nil || len(addrs) == 0 {
		return IPInfo{}, err
	}
	info := IPInfo{IP: addrs[0].Address, Netmask: prefixToMask(int(addrs[0].Prefix))}
	if gw, err := cfg.GetPropertyGateway(); err == nil {
		info.Gateway = gw
	}
	if ns, err := cfg.GetPropertyNameserverData(); err == nil && len(ns) > 0 {
		info.DNS = ns[0].Address
	}
	return info, nil
}

func prefixToMask(prefix int) string {
	m := net.CIDRMask(prefix, 32)
	if m == nil {
		return ""
	}
	return net.IP(m).String()
}
