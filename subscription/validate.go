package subscription

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

const (
	// MaxURLLength bounds destination URLs.
	MaxURLLength = 2048

	// MaxDescriptionLength bounds the free-form description.
	MaxDescriptionLength = 500

	// MaxEventTypes bounds the event-type filter set.
	MaxEventTypes = 10

	lookupTimeout = 5 * time.Second
)

// ValidationError describes a rejected subscription input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid subscription %s: %s", e.Field, e.Reason)
}

// Validator checks subscription inputs, including resolving destination
// hosts to reject private, loopback, and link-local addresses.
type Validator struct {
	// lookupIP resolves hostnames. Overridable in tests.
	lookupIP func(ctx context.Context, host string) ([]net.IP, error)
}

// NewValidator returns a Validator backed by the system resolver.
func NewValidator() *Validator {
	return &Validator{
		lookupIP: func(ctx context.Context, host string) ([]net.IP, error) {
			addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			ips := make([]net.IP, 0, len(addrs))
			for _, a := range addrs {
				ips = append(ips, a.IP)
			}
			return ips, nil
		},
	}
}

// ValidateInput checks a create input in full.
func (v *Validator) ValidateInput(ctx context.Context, in Input) error {
	if err := v.ValidateURL(ctx, in.URL); err != nil {
		return err
	}
	if len(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxDescriptionLength)}
	}
	return ValidateEventTypes(in.EventTypes)
}

// ValidateURL checks scheme, length, and the resolved destination address.
func (v *Validator) ValidateURL(ctx context.Context, raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "is required"}
	}
	if len(raw) > MaxURLLength {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("exceeds %d characters", MaxURLLength)}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: "is not a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("scheme %q is not allowed", u.Scheme)}
	}
	host := u.Hostname()
	if host == "" {
		return &ValidationError{Field: "url", Reason: "has no host"}
	}

	// Literal IPs are checked directly; hostnames are resolved so a
	// public name cannot front a private address.
	if ip := net.ParseIP(host); ip != nil {
		if !publicIP(ip) {
			return &ValidationError{Field: "url", Reason: "resolves to a private or local address"}
		}
		return nil
	}

	lctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	ips, err := v.lookupIP(lctx, host)
	if err != nil {
		return &ValidationError{Field: "url", Reason: fmt.Sprintf("host did not resolve: %v", err)}
	}
	for _, ip := range ips {
		if !publicIP(ip) {
			return &ValidationError{Field: "url", Reason: "resolves to a private or local address"}
		}
	}
	return nil
}

// ValidateEventTypes checks the filter set shape. Registry membership is
// checked separately by the service.
func ValidateEventTypes(types []string) error {
	if len(types) == 0 {
		return &ValidationError{Field: "event_types", Reason: "must not be empty"}
	}
	if len(types) > MaxEventTypes {
		return &ValidationError{Field: "event_types", Reason: fmt.Sprintf("exceeds %d entries", MaxEventTypes)}
	}
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		if t == "" {
			return &ValidationError{Field: "event_types", Reason: "contains an empty entry"}
		}
		if _, dup := seen[t]; dup {
			return &ValidationError{Field: "event_types", Reason: fmt.Sprintf("contains duplicate %q", t)}
		}
		seen[t] = struct{}{}
	}
	return nil
}

func publicIP(ip net.IP) bool {
	return !ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsUnspecified()
}
