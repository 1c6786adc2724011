package musiccast

import (
	"context"
	"encoding/xml"
	"fmt"
	"mime"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/musiccast-integration/internal/pkg/model"
	"github.com/anicoll/musiccast-integration/internal/pkg/yxc"
)

// List item attribute bits.
const (
	AttrBrowse = 0b10
	AttrPlay   = 0b100
	AttrSearch = 0b1000
)

const listID = "main"

// BrowsableInputs are the net/usb inputs that expose a browse list.
var BrowsableInputs = []string{
	"usb", "server", "net_radio", "rhapsody", "napster", "pandora",
	"siriusxm", "juke", "radiko", "qobuz", "deezer", "amazon_music",
}

// mimeClasses maps MIME prefixes to UPnP object classes. Checked in order.
var mimeClasses = []struct{ prefix, class string }{
	{"application/x-mpegurl", "object.item.videoItem"},
	{"image", "object.item.imageItem"},
	{"video", "object.item.videoItem"},
	{"application/dash+xml", "object.item.videoItem"},
	{"application/vnd.apple.mpegurl", "object.item.videoItem"},
	{"audio", "object.item.audioItem"},
}

// MediaItem is one entry of a browse view.
type MediaItem struct {
	Title     string `json:"title"`
	ContentID string `json:"content_id"`
	Thumbnail string `json:"thumbnail,omitempty"`
	CanBrowse bool   `json:"can_browse"`
	CanPlay   bool   `json:"can_play"`
	CanSearch bool   `json:"can_search"`
}

// ListItemMedia converts a list entry at index into a MediaItem.
func ListItemMedia(source string, layer, index int, item model.ListItem) MediaItem {
	return MediaItem{
		Title:     item.Text,
		ContentID: fmt.Sprintf("list:%s:%d_%d:%d", source, layer, item.Attribute, index),
		Thumbnail: item.Thumbnail,
		CanBrowse: item.Attribute&AttrBrowse != 0,
		CanPlay:   item.Attribute&AttrPlay != 0,
		CanSearch: item.Attribute&AttrSearch != 0,
	}
}

// BrowseCategories lists the presets entry followed by every browsable
// input of the zone, sorted by id.
func (d *Device) BrowseCategories(zone string) ([]MediaItem, error) {
	var out []MediaItem
	var err error
	d.Read(func(s *model.DeviceState) {
		z, ok := s.Zones[zone]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrZoneNotFound, zone)
			return
		}
		sources := lo.Intersect(BrowsableInputs, z.InputList)
		slices.Sort(sources)
		out = append(out, MediaItem{Title: "Presets", ContentID: "presets", CanBrowse: true})
		for _, src := range sources {
			name := s.InputNames[src]
			if name == "" {
				name = src
			}
			out = append(out, MediaItem{Title: name, ContentID: "input:" + src, CanBrowse: true})
		}
	})
	return out, err
}

// Presets lists the stored net/usb presets as playable items.
func (d *Device) Presets() []MediaItem {
	var out []MediaItem
	d.Read(func(s *model.DeviceState) {
		nums := lo.Keys(s.NetUSBPresets)
		slices.Sort(nums)
		for _, n := range nums {
			p := s.NetUSBPresets[n]
			out = append(out, MediaItem{
				Title:     p.Input + " - " + p.Text,
				ContentID: "presets:" + strconv.Itoa(n),
				CanPlay:   true,
			})
		}
	})
	return out
}

// ListInfo reads one page of the browse list for source. start must be a
// multiple of the page size.
func (d *Device) ListInfo(ctx context.Context, source string, start int) (model.ListInfo, error) {
	req, err := yxc.NetUSBGetListInfo(source, start, yxc.MaxListPageSize, "en", listID)
	if err != nil {
		return model.ListInfo{}, err
	}
	return decode[model.ListInfo](ctx, d, req)
}

func (d *Device) SelectListItem(ctx context.Context, zone string, index int) error {
	return d.do(ctx)(yxc.NetUSBSetListControl(listID, "select", index, zone))
}

func (d *Device) PlayListMedia(ctx context.Context, zone string, index int) error {
	return d.do(ctx)(yxc.NetUSBSetListControl(listID, "play", index, zone))
}

func (d *Device) ReturnInList(ctx context.Context, zone string) error {
	return d.do(ctx)(yxc.NetUSBSetListControl(listID, "return", 0, zone))
}

// ReturnToLayer walks the browse list of source back up to layer.
func (d *Device) ReturnToLayer(ctx context.Context, zone, source string, layer int) error {
	for {
		info, err := d.ListInfo(ctx, source, 0)
		if err != nil {
			return err
		}
		if info.MenuLayer <= layer {
			return nil
		}
		if err := d.ReturnInList(ctx, zone); err != nil {
			return err
		}
	}
}

func (d *Device) SetSearchString(ctx context.Context, search string) error {
	if err := d.do(ctx)(yxc.NetUSBSetSearchString(yxc.SearchString{String: search})); err != nil {
		return err
	}
	d.mu.Lock()
	d.state.SearchString = search
	d.mu.Unlock()
	return nil
}

// PlayURL plays a media url on zone through the device's UPnP renderer.
// An empty mimeType is guessed from the url. Argument values are passed
// unescaped; the renderer escapes them into the SOAP body.
func (d *Device) PlayURL(ctx context.Context, zone, mediaURL, title, mimeType string) error {
	var description string
	d.Read(func(s *model.DeviceState) { description = s.UPnPDescription })
	if description == "" {
		return fmt.Errorf("%w: url playback needs a UPnP description", ErrConfiguration)
	}
	renderer, ok := d.transport.(MediaRenderer)
	if !ok {
		return fmt.Errorf("%w: transport cannot drive a media renderer", ErrConfiguration)
	}
	if err := d.requireZone(zone); err != nil {
		return err
	}

	if err := d.SelectSource(ctx, zone, "server", "autoplay_disabled"); err != nil {
		return err
	}
	if err := renderer.AVTransport(ctx, description, "Stop", Arg{"InstanceID", "0"}); err != nil {
		return err
	}

	if mimeType == "" {
		mimeType = guessMIME(mediaURL)
	}
	meta := didl(mediaURL, title, mimeType)
	d.logger.Debug("play url", zap.String("url", mediaURL), zap.String("mime", mimeType))
	if err := renderer.AVTransport(ctx, description, "SetAVTransportURI",
		Arg{"InstanceID", "0"},
		Arg{"CurrentURI", mediaURL},
		Arg{"CurrentURIMetaData", meta},
	); err != nil {
		return err
	}
	return renderer.AVTransport(ctx, description, "Play", Arg{"InstanceID", "0"}, Arg{"Speed", "1"})
}

func guessMIME(mediaURL string) string {
	p := mediaURL
	if u, err := url.Parse(mediaURL); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		// drop parameters such as "; charset=utf-8"
		return strings.TrimSpace(strings.SplitN(t, ";", 2)[0])
	}
	return "application/octet-stream"
}

func upnpClass(mimeType string) string {
	for _, c := range mimeClasses {
		if strings.HasPrefix(mimeType, c.prefix) {
			return c.class
		}
	}
	return "object.item"
}

func didl(mediaURL, title, mimeType string) string {
	return `<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" ` +
		`xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/" ` +
		`xmlns:sec="http://www.sec.co.kr/">` +
		`<item id="0" parentID="-1" restricted="false">` +
		`<dc:title>` + escapeXML(title) + `</dc:title><upnp:class>` + upnpClass(mimeType) + `</upnp:class>` +
		`<res protocolInfo="http-get:*:` + escapeXML(mimeType) + `:*">` + escapeXML(mediaURL) + `</res>` +
		`</item></DIDL-Lite>`
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
