package api

import (
	"strings"

	"github.com/lepinkainen/tabskin/pkg/errs"
)

// Photo is the subset of the photo service payload the client relies on
type Photo struct {
	ID    string     `json:"id,omitempty"`
	URLs  PhotoURLs  `json:"urls"`
	User  PhotoUser  `json:"user"`
	Links PhotoLinks `json:"links"`
}

// PhotoURLs holds the image renditions
type PhotoURLs struct {
	Full    string `json:"full"`
	Regular string `json:"regular,omitempty"`
}

// PhotoUser describes the photographer
type PhotoUser struct {
	Name  string    `json:"name"`
	Links UserLinks `json:"links"`
}

// UserLinks holds the photographer's profile link
type UserLinks struct {
	HTML string `json:"html"`
}

// PhotoLinks holds the photo page and the download tracking endpoint
type PhotoLinks struct {
	HTML             string `json:"html"`
	DownloadLocation string `json:"download_location,omitempty"`
}

// Validate checks that the payload carries an image URL
func (p *Photo) Validate() error {
	if strings.TrimSpace(p.URLs.Full) == "" {
		return errs.Malformed("urls.full")
	}
	return nil
}

// DownloadRequest is the body of the download tracking call
type DownloadRequest struct {
	DownloadLocation string `json:"downloadLocation"`
}
