package subscription

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

// staticResolver maps hostnames to fixed IPs so tests never touch DNS.
func staticResolver(hosts map[string][]string) func(ctx context.Context, host string) ([]net.IP, error) {
	return func(_ context.Context, host string) ([]net.IP, error) {
		addrs, ok := hosts[host]
		if !ok {
			return nil, fmt.Errorf("no such host: %s", host)
		}
		ips := make([]net.IP, 0, len(addrs))
		for _, a := range addrs {
			ips = append(ips, net.ParseIP(a))
		}
		return ips, nil
	}
}

func newTestValidator() *Validator {
	return &Validator{lookupIP: staticResolver(map[string][]string{
		"example.com":     {"93.184.216.34"},
		"internal.corp":   {"10.0.0.5"},
		"mixed.corp":      {"93.184.216.34", "192.168.1.10"},
		"localhost.decoy": {"127.0.0.1"},
	})}
}

func TestValidateURLAcceptsPublicHost(t *testing.T) {
	v := newTestValidator()

	if err := v.ValidateURL(context.Background(), "https://example.com/hooks"); err != nil {
		t.Fatal("public host should be accepted, got:", err)
	}
	if err := v.ValidateURL(context.Background(), "http://example.com/hooks"); err != nil {
		t.Fatal("plain http should be accepted, got:", err)
	}
}

func TestValidateURLRejections(t *testing.T) {
	v := newTestValidator()

	cases := []struct {
		name string
		url  string
		want string // substring of the rejection reason
	}{
		{"empty", "", "required"},
		{"bad scheme", "ftp://example.com/hooks", "not allowed"},
		{"no host", "https:///path-only", "no host"},
		{"loopback literal", "http://127.0.0.1/hooks", "private or local"},
		{"private literal", "http://10.0.0.5/hooks", "private or local"},
		{"rfc1918 literal", "https://192.168.1.1/hooks", "private or local"},
		{"link-local literal", "http://169.254.169.254/latest/meta-data", "private or local"},
		{"unspecified literal", "http://0.0.0.0/hooks", "private or local"},
		{"ipv6 loopback", "http://[::1]/hooks", "private or local"},
		{"private hostname", "https://internal.corp/hooks", "private or local"},
		{"mixed resolution", "https://mixed.corp/hooks", "private or local"},
		{"loopback hostname", "https://localhost.decoy/hooks", "private or local"},
		{"unresolvable", "https://nowhere.invalid/hooks", "did not resolve"},
		{"too long", "https://example.com/" + strings.Repeat("x", MaxURLLength), "exceeds"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateURL(context.Background(), tc.url)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != "url" {
				t.Errorf("Field = %q, want url", verr.Field)
			}
			if !strings.Contains(verr.Reason, tc.want) {
				t.Errorf("Reason = %q, want substring %q", verr.Reason, tc.want)
			}
		})
	}
}

func TestValidateInput(t *testing.T) {
	v := newTestValidator()

	in := Input{
		URL:        "https://example.com/hooks",
		EventTypes: []string{"order.created"},
	}
	if err := v.ValidateInput(context.Background(), in); err != nil {
		t.Fatal("valid input should pass, got:", err)
	}

	in.Description = strings.Repeat("d", MaxDescriptionLength+1)
	if err := v.ValidateInput(context.Background(), in); err == nil {
		t.Fatal("over-long description should be rejected")
	}
}

func TestValidateEventTypes(t *testing.T) {
	cases := []struct {
		name  string
		types []string
		ok    bool
	}{
		{"valid", []string{"order.created", "order.shipped"}, true},
		{"empty set", nil, false},
		{"empty entry", []string{"order.created", ""}, false},
		{"duplicate", []string{"order.created", "order.created"}, false},
		{"too many", make([]string, MaxEventTypes+1), false},
	}

	// Give the too-many case distinct non-empty names.
	for i := range cases[4].types {
		cases[4].types[i] = fmt.Sprintf("type.%d", i)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEventTypes(tc.types)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
