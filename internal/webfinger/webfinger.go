// Package webfinger parses acct: resources.
package webfinger

import (
	"fmt"
	"net/url"
	"strings"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []Link   `json:"links"`
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL for the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// Parse parses an acct: resource, a @user@host handle, or a bare user@host.
func Parse(query string) (*Acct, error) {
	// In case the handle has been URL encoded
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	query = strings.TrimPrefix(query, "acct:")
	// Remove the leading @, if there's one.
	query = strings.TrimPrefix(query, "@")

	user, host, ok := strings.Cut(query, "@")
	switch {
	case user == "":
		return nil, fmt.Errorf("invalid acct: %q", query)
	case !ok:
		return &Acct{User: user}, nil
	case host == "" || strings.Contains(host, "@"):
		return nil, fmt.Errorf("invalid acct: %q", query)
	default:
		return &Acct{User: user, Host: host}, nil
	}
}
