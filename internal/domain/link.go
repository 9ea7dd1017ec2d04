package domain

import (
	"strings"
	"time"
)

// LinkType decides how a link's href is opened.
type LinkType string

const (
	LinkTypeLink     LinkType = "link"
	LinkTypeEmail    LinkType = "email"
	LinkTypeWhatsApp LinkType = "whatsapp"
	LinkTypeDownload LinkType = "download"
	LinkTypeVideo    LinkType = "video"
)

// IconType selects the icon drawn next to a link.
type IconType string

const (
	IconInstagram IconType = "instagram"
	IconEmail     IconType = "email"
	IconWebsite   IconType = "website"
	IconDownload  IconType = "download"
	IconWhatsApp  IconType = "whatsapp"
)

// Link is one button on a storefront.
type Link struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"-"`
	Title      string    `json:"title"`
	Subtitle   string    `json:"subtitle,omitempty"`
	Href       string    `json:"href"`
	Type       LinkType  `json:"type"`
	IconType   IconType  `json:"icon_type"`
	OrderIndex int       `json:"order_index"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ResolvedHref is the URL a visitor's click opens: email addresses become
// mailto: links, WhatsApp numbers become wa.me links, everything else is
// used as stored.
func (l *Link) ResolvedHref() string {
	switch l.Type {
	case LinkTypeEmail:
		return "mailto:" + l.Href
	case LinkTypeWhatsApp:
		return "https://wa.me/" + strings.TrimPrefix(l.Href, "+")
	default:
		return l.Href
	}
}

// OpensInNewTab is false only for mail links, which hand off to the mail client.
func (l *Link) OpensInNewTab() bool {
	return l.Type != LinkTypeEmail
}

// IsValid reports whether t is a known link type.
func (t LinkType) IsValid() bool {
	switch t {
	case LinkTypeLink, LinkTypeEmail, LinkTypeWhatsApp, LinkTypeDownload, LinkTypeVideo:
		return true
	}
	return false
}

// IsValid reports whether i is a known icon.
func (i IconType) IsValid() bool {
	switch i {
	case IconInstagram, IconEmail, IconWebsite, IconDownload, IconWhatsApp:
		return true
	}
	return false
}
