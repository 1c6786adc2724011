package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/musiccast"
)

const soapUserAgent = "MusicCast/4673 (iOS)"

var ErrNoAVTransport = errors.New("transport: no AVTransport service in UPnP description")

type avService struct {
	serviceType string
	controlURL  string
}

type upnpDevice struct {
	Services []struct {
		ServiceType string `xml:"serviceType"`
		ServiceID   string `xml:"serviceId"`
		ControlURL  string `xml:"controlURL"`
	} `xml:"serviceList>service"`
	Devices []upnpDevice `xml:"deviceList>device"`
}

type upnpRoot struct {
	Device upnpDevice `xml:"device"`
}

func (d upnpDevice) find(match func(id string) bool) (string, string, bool) {
	for _, s := range d.Services {
		if match(s.ServiceID) {
			return s.ServiceType, s.ControlURL, true
		}
	}
	for _, sub := range d.Devices {
		if st, cu, ok := sub.find(match); ok {
			return st, cu, true
		}
	}
	return "", "", false
}

// AVTransport invokes a SOAP action on the AVTransport service named in the
// description at descriptionURL. Values are XML escaped here.
func (c *Client) AVTransport(ctx context.Context, descriptionURL, action string, args ...musiccast.Arg) error {
	svc, err := c.avTransport(ctx, descriptionURL)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&b, `<u:%s xmlns:u="%s">`, action, svc.serviceType)
	for _, a := range args {
		b.WriteString("<" + a.Name + ">")
		if err := xml.EscapeText(&b, []byte(a.Value)); err != nil {
			return err
		}
		b.WriteString("</" + a.Name + ">")
	}
	fmt.Fprintf(&b, `</u:%s></s:Body></s:Envelope>`, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.controlURL, strings.NewReader(b.String()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", `"`+svc.serviceType+"#"+action+`"`)
	req.Header.Set("User-Agent", soapUserAgent)

	c.logger.Debug("soap action", zap.String("host", c.host), zap.String("action", action))
	res, err := c.http.Do(req)
	if err != nil {
		return &musiccast.ConnectionError{Op: "soap " + action, Err: err}
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode != http.StatusOK {
		return &ResponseError{Path: action, Status: res.StatusCode}
	}
	return nil
}

// avTransport reads and caches the AVTransport service of a description.
func (c *Client) avTransport(ctx context.Context, descriptionURL string) (avService, error) {
	c.mu.Lock()
	svc, ok := c.services[descriptionURL]
	c.mu.Unlock()
	if ok {
		return svc, nil
	}

	base, err := url.Parse(descriptionURL)
	if err != nil {
		return avService{}, fmt.Errorf("upnp description url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descriptionURL, nil)
	if err != nil {
		return avService{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return avService{}, &musiccast.ConnectionError{Op: "upnp description", Err: err}
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return avService{}, &musiccast.ConnectionError{Op: "upnp description", Err: err}
	}
	if res.StatusCode != http.StatusOK {
		return avService{}, &ResponseError{Path: descriptionURL, Status: res.StatusCode}
	}

	var root upnpRoot
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return avService{}, fmt.Errorf("upnp description: %w", err)
	}
	serviceType, control, found := root.Device.find(func(id string) bool { return strings.Contains(id, "AVT") })
	if !found {
		return avService{}, ErrNoAVTransport
	}
	ref, err := url.Parse(control)
	if err != nil {
		return avService{}, fmt.Errorf("upnp control url: %w", err)
	}
	// the control url is served by the device at the description's port
	controlURL := *base.ResolveReference(ref)
	controlURL.Host = c.hostname()
	if port := base.Port(); port != "" {
		controlURL.Host = net.JoinHostPort(controlURL.Host, port)
	}

	svc = avService{serviceType: serviceType, controlURL: controlURL.String()}
	c.mu.Lock()
	c.services[descriptionURL] = svc
	c.mu.Unlock()
	return svc, nil
}

func (c *Client) hostname() string {
	if u, err := url.Parse("http://" + c.host); err == nil {
		return u.Hostname()
	}
	return c.host
}
