// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"syscall"
	"time"
)

// maxImageBytes caps remote image downloads.
const maxImageBytes = 10 << 20

// IsDataURL reports whether u is a data: URL.
func IsDataURL(u string) bool {
	return strings.HasPrefix(u, "data:")
}

// ParseDataURL splits a data: URL into its media type and decoded bytes.
// Both base64 and percent-encoded payloads are supported.
func ParseDataURL(u string) (mediaType string, data []byte, err error) {
	if !IsDataURL(u) {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}

	isBase64 := strings.HasSuffix(meta, ";base64")
	mediaType = strings.TrimSuffix(meta, ";base64")
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return "", nil, fmt.Errorf("data URL base64: %w", err)
		}
		return mediaType, data, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data URL unescape: %w", err)
	}
	return mediaType, []byte(decoded), nil
}

// loadImage returns the media type and bytes of an image part. Remote
// URLs must have been inlined by an ImageFetcher before the request is
// built; providers never download user-supplied URLs.
func loadImage(u string) (string, []byte, error) {
	if !IsDataURL(u) {
		return "", nil, ErrRemoteImage
	}
	return ParseDataURL(u)
}

// ErrRemoteImage rejects an image that is neither a data URL nor a public
// https URL.
var ErrRemoteImage = errors.New("image must be a data URL or a public https URL")

// ImageFetcher downloads remote images the user attached. It only speaks
// https and refuses to connect to loopback, private, link-local and other
// non-public addresses, including after redirects.
type ImageFetcher struct {
	client       *http.Client
	requireHTTPS bool
}

// NewImageFetcher creates a fetcher with the public-address dial guard.
func NewImageFetcher() *ImageFetcher {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			addr, err := netip.ParseAddr(host)
			if err != nil {
				return err
			}
			if !isPublicAddr(addr) {
				return fmt.Errorf("%w: %s is not a public address", ErrRemoteImage, addr)
			}
			return nil
		},
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
	}
	return &ImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("image fetch: too many redirects")
				}
				if req.URL.Scheme != "https" {
					return ErrRemoteImage
				}
				return nil
			},
		},
		requireHTTPS: true,
	}
}

func isPublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	switch {
	case !a.IsValid(), a.IsUnspecified(), a.IsLoopback(), a.IsPrivate(),
		a.IsLinkLocalUnicast(), a.IsLinkLocalMulticast(),
		a.IsInterfaceLocalMulticast(), a.IsMulticast():
		return false
	}
	return !sharedAddressSpace.Contains(a)
}

// 100.64.0.0/10, carrier-grade NAT.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Inline returns msgs with every remote image replaced by a data URL. Each
// distinct URL is downloaded once; msgs itself is not modified.
func (f *ImageFetcher) Inline(ctx context.Context, msgs []Message) ([]Message, error) {
	fetched := map[string]string{}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		cloned := false
		for j, part := range m.Parts {
			if part.Type != PartImage || IsDataURL(part.ImageURL) {
				continue
			}
			dataURL, ok := fetched[part.ImageURL]
			if !ok {
				mediaType, data, err := f.Fetch(ctx, part.ImageURL)
				if err != nil {
					return nil, err
				}
				dataURL = "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
				fetched[part.ImageURL] = dataURL
			}
			if !cloned {
				out[i].Parts = slices.Clone(m.Parts)
				cloned = true
			}
			out[i].Parts[j] = ImagePart(dataURL)
		}
	}
	return out, nil
}

// Fetch downloads one image and returns its media type and bytes.
func (f *ImageFetcher) Fetch(ctx context.Context, raw string) (string, []byte, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", nil, ErrRemoteImage
	}
	if u.Scheme != "https" && (f.requireHTTPS || u.Scheme != "http") {
		return "", nil, ErrRemoteImage
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrRemoteImage) {
			return "", nil, ErrRemoteImage
		}
		return "", nil, fmt.Errorf("image http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("image fetch (status %d)", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("image read body: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		if ct, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";"); strings.HasPrefix(ct, "image/") {
			mediaType = ct
		} else {
			return "", nil, fmt.Errorf("image fetch: unexpected content type %q", mediaType)
		}
	}
	return mediaType, data, nil
}
