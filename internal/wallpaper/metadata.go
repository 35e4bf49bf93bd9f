// Package wallpaper decides when to fetch a new background, persists what is
// on screen, and drives the startup paint.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lepinkainen/tabskin/pkg/api"
	"github.com/lepinkainen/tabskin/pkg/dbinterfaces"
	"github.com/lepinkainen/tabskin/pkg/errs"
	"github.com/lepinkainen/tabskin/pkg/urlutils"
)

// Persisted metadata keys
const (
	KeyURL         = "lastImageUrl"
	KeyCreator     = "lastImageCreator"
	KeyPhotoLink   = "lastImagePhotoLink"
	KeyCreatorLink = "lastImageCreatorLink"
	KeyLoadTime    = "lastImageLoadTime"
)

// MetadataKeys lists every key written for one image, in write order
var MetadataKeys = []string{KeyURL, KeyCreator, KeyPhotoLink, KeyCreatorLink, KeyLoadTime}

// UnknownAuthor is shown when the payload names no photographer
const UnknownAuthor = "Unknown"

// Metadata describes the image currently on screen
type Metadata struct {
	URL        string
	AuthorName string
	PhotoLink  string
	AuthorLink string
	Timestamp  time.Time
}

// FromPhoto maps a photo payload to the metadata that gets persisted
func FromPhoto(p *api.Photo, now time.Time) Metadata {
	author := p.User.Name
	if author == "" {
		author = UnknownAuthor
	}
	return Metadata{
		URL:        p.URLs.Full,
		AuthorName: author,
		PhotoLink:  urlutils.WithReferral(urlutils.LinkOrPlaceholder(p.Links.HTML)),
		AuthorLink: urlutils.WithReferral(urlutils.LinkOrPlaceholder(p.User.Links.HTML)),
		Timestamp:  time.UnixMilli(now.UnixMilli()),
	}
}

// Age returns how long ago the image was fetched
func (m Metadata) Age(now time.Time) time.Duration {
	return now.Sub(m.Timestamp)
}

// SaveMetadata overwrites all five keys. The writes are not atomic; a crash
// between them is detected by LoadMetadata.
func SaveMetadata(ctx context.Context, kv dbinterfaces.KeyValueStore, m Metadata) error {
	values := map[string]string{
		KeyURL:         m.URL,
		KeyCreator:     m.AuthorName,
		KeyPhotoLink:   m.PhotoLink,
		KeyCreatorLink: m.AuthorLink,
		KeyLoadTime:    strconv.FormatInt(m.Timestamp.UnixMilli(), 10),
	}
	for _, key := range MetadataKeys {
		if err := kv.Set(ctx, key, values[key]); err != nil {
			return errs.CacheWrite(err, key)
		}
	}
	return nil
}

// LoadMetadata reads the persisted metadata. ok is false when no image URL is
// stored, in which case nothing else is trusted. When the URL is present but
// other keys are missing, the readable fields are returned with ok=true and a
// partial-write error; missing links fall back to the placeholder and a missing
// load time to the zero time.
func LoadMetadata(ctx context.Context, kv dbinterfaces.KeyValueStore) (Metadata, bool, error) {
	url, ok, err := kv.Get(ctx, KeyURL)
	if err != nil {
		return Metadata{}, false, fmt.Errorf("failed to read image metadata: %w", err)
	}
	if !ok || url == "" {
		return Metadata{}, false, nil
	}

	m := Metadata{
		URL:        url,
		AuthorName: UnknownAuthor,
		PhotoLink:  urlutils.PlaceholderLink,
		AuthorLink: urlutils.PlaceholderLink,
	}

	var missing []string
	fields := []struct {
		key string
		dst *string
	}{
		{KeyCreator, &m.AuthorName},
		{KeyPhotoLink, &m.PhotoLink},
		{KeyCreatorLink, &m.AuthorLink},
	}
	for _, f := range fields {
		value, ok, err := kv.Get(ctx, f.key)
		if err != nil {
			return Metadata{}, false, fmt.Errorf("failed to read image metadata: %w", err)
		}
		if !ok {
			missing = append(missing, f.key)
			continue
		}
		*f.dst = value
	}

	raw, ok, err := kv.Get(ctx, KeyLoadTime)
	if err != nil {
		return Metadata{}, false, fmt.Errorf("failed to read image metadata: %w", err)
	}
	if ms, convErr := strconv.ParseInt(raw, 10, 64); ok && convErr == nil {
		m.Timestamp = time.UnixMilli(ms)
	} else {
		missing = append(missing, KeyLoadTime)
	}

	if len(missing) > 0 {
		return m, true, errs.PartialWrite(missing)
	}
	return m, true, nil
}

// ClearMetadata removes all five keys
func ClearMetadata(ctx context.Context, kv dbinterfaces.KeyValueStore) error {
	var all []error
	for _, key := range MetadataKeys {
		if err := kv.Remove(ctx, key); err != nil {
			all = append(all, fmt.Errorf("failed to remove %s: %w", key, err))
		}
	}
	return errors.Join(all...)
}
