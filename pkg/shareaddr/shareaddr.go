// Package shareaddr encodes and decodes share addresses: durable links that
// pin a (room, page, viewport) view of a document.
//
// Two forms exist. The query form is used for new links:
//
//	/r/{roomId}?p={pageId}&d=v{x}.{y}.{w}.{h}
//
// The path form is the legacy compact form, still accepted on read:
//
//	/board/{roomId}[.{pageIndex}].v{x}.{y}.{w}.{h}
//
// Decoding never fails on malformed optional fields: a bad viewport or page
// token silently decodes to absent. A missing room id is the only hard
// failure.
package shareaddr

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var ErrNotShareAddress = errors.New("not a share address")

const (
	queryPrefix = "/r/"
	pathPrefix  = "/board/"
)

// Viewport is a camera rectangle. Values are rounded to whole units on
// encode because the dot doubles as the token separator.
type Viewport struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) Finite() bool {
	for _, f := range [4]float64{v.X, v.Y, v.Width, v.Height} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Address is a decoded share address. PageID is set by the query form,
// PageIndex (>= 0) by the path form; resolving an index against an actual
// page is the caller's job (conventionally as "page:{index}").
type Address struct {
	RoomID    string
	PageID    string
	PageIndex int
	Viewport  *Viewport
}

// EncodeQuery renders the query form. The page parameter is omitted when
// pageID is empty; the viewport parameter is omitted unless all four values
// are finite.
func EncodeQuery(roomID, pageID string, vp *Viewport) string {
	u := url.URL{Path: queryPrefix + roomID}
	q := url.Values{}
	if pageID != "" {
		q.Set("p", pageID)
	}
	if vp != nil && vp.Finite() {
		q.Set("d", viewportToken(*vp))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// EncodePath renders the legacy path form. A negative pageIndex means no
// page segment; a nil or non-finite viewport is omitted entirely.
func EncodePath(roomID string, pageIndex int, vp *Viewport) string {
	var b strings.Builder
	b.WriteString(pathPrefix)
	b.WriteString(url.PathEscape(roomID))
	if pageIndex >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(pageIndex))
	}
	if vp != nil && vp.Finite() {
		b.WriteByte('.')
		b.WriteString(viewportToken(*vp))
	}
	return b.String()
}

// Decode accepts either form, full URL or bare path, and dispatches on the
// path prefix.
func Decode(raw string) (*Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrNotShareAddress
	}
	switch {
	case strings.HasPrefix(u.Path, queryPrefix):
		return decodeQuery(u)
	case strings.HasPrefix(u.Path, pathPrefix):
		return decodePath(u)
	}
	return nil, ErrNotShareAddress
}

// DecodeQuery decodes the query form only.
func DecodeQuery(raw string) (*Address, error) {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(u.Path, queryPrefix) {
		return nil, ErrNotShareAddress
	}
	return decodeQuery(u)
}

// DecodePath decodes the legacy path form only.
func DecodePath(raw string) (*Address, error) {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(u.Path, pathPrefix) {
		return nil, ErrNotShareAddress
	}
	return decodePath(u)
}

func decodeQuery(u *url.URL) (*Address, error) {
	roomID := strings.Trim(strings.TrimPrefix(u.Path, queryPrefix), "/")
	if roomID == "" || strings.Contains(roomID, "/") {
		return nil, ErrNotShareAddress
	}
	addr := &Address{RoomID: roomID, PageIndex: -1}
	q := u.Query()
	addr.PageID = q.Get("p")
	if d := q.Get("d"); d != "" {
		addr.Viewport = parseViewportValue(d)
	}
	return addr, nil
}

func decodePath(u *url.URL) (*Address, error) {
	seg := strings.Trim(strings.TrimPrefix(u.Path, pathPrefix), "/")
	if seg == "" || strings.Contains(seg, "/") {
		return nil, ErrNotShareAddress
	}
	tokens := strings.Split(seg, ".")
	roomID, err := url.PathUnescape(tokens[0])
	if err != nil || roomID == "" {
		return nil, ErrNotShareAddress
	}

	addr := &Address{RoomID: roomID, PageIndex: -1}
	rest := tokens[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if strings.HasPrefix(tok, "v") {
			// Viewport token plus the three following number tokens.
			if vp := parseViewportTokens(rest[i:]); vp != nil {
				addr.Viewport = vp
			}
			break
		}
		if addr.PageIndex < 0 {
			if idx, err := strconv.Atoi(tok); err == nil && idx >= 0 {
				addr.PageIndex = idx
			}
			// Anything else before the viewport is ignored, not an error.
		}
	}
	return addr, nil
}

func viewportToken(vp Viewport) string {
	return fmt.Sprintf("v%d.%d.%d.%d",
		int64(math.Round(vp.X)),
		int64(math.Round(vp.Y)),
		int64(math.Round(vp.Width)),
		int64(math.Round(vp.Height)),
	)
}

// parseViewportValue parses the query-form "d" value: a literal 'v' then
// four dot-separated numbers. Anything else degrades to no viewport.
func parseViewportValue(val string) *Viewport {
	if !strings.HasPrefix(val, "v") {
		return nil
	}
	return parseViewportParts(strings.Split(strings.TrimPrefix(val, "v"), "."))
}

// parseViewportTokens parses the path-form tail starting at the v-token:
// ["v{x}", "{y}", "{w}", "{h}", ...].
func parseViewportTokens(tokens []string) *Viewport {
	if len(tokens) < 4 || !strings.HasPrefix(tokens[0], "v") {
		return nil
	}
	parts := []string{strings.TrimPrefix(tokens[0], "v"), tokens[1], tokens[2], tokens[3]}
	return parseViewportParts(parts)
}

func parseViewportParts(parts []string) *Viewport {
	if len(parts) != 4 {
		return nil
	}
	var nums [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		nums[i] = f
	}
	return &Viewport{X: nums[0], Y: nums[1], Width: nums[2], Height: nums[3]}
}
