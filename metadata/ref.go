// Package metadata covers the off-ledger half of a ticket: the reference
// string a ticket carries and the JSON descriptors those references point
// at.
package metadata

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRef is returned for references the program will not attach.
var ErrInvalidRef = errors.New("invalid metadata reference")

// Schemes accepted in a metadata reference.
var Schemes = []string{"ipfs", "ar", "https", "http"}

// Ref is a parsed metadata reference.
type Ref struct {
	Scheme string
	// Location is everything after "scheme://" (or "scheme:").
	Location string
}

func (r Ref) String() string {
	return r.Scheme + "://" + r.Location
}

// ParseRef function
func ParseRef(ref string) (Ref, error) {
	if strings.TrimSpace(ref) != ref || ref == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if !knownScheme(scheme) {
		return Ref{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRef, u.Scheme)
	}

	var location string
	switch {
	case u.Opaque != "":
		location = u.Opaque
	default:
		location = strings.TrimPrefix(u.Host+u.Path, "/")
	}
	if location == "" {
		return Ref{}, fmt.Errorf("%w: %q has nothing after the scheme", ErrInvalidRef, ref)
	}
	if (scheme == "https" || scheme == "http") && u.Host == "" {
		return Ref{}, fmt.Errorf("%w: %q has no host", ErrInvalidRef, ref)
	}
	if u.RawQuery != "" {
		location += "?" + u.RawQuery
	}
	return Ref{Scheme: scheme, Location: location}, nil
}

// IPFSRef returns the reference of a pinned IPFS object.
func IPFSRef(hash string) string {
	return "ipfs://" + hash
}

func knownScheme(s string) bool {
	for _, known := range Schemes {
		if s == known {
			return true
		}
	}
	return false
}
