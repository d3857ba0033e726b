package tools

import (
	"errors"
	"net/netip"
	"testing"
)

func TestValidateFetchURL(t *testing.T) {
	cases := []struct {
		name       string
		rawURL     string
		wantErr    error
		wantAnyErr bool
	}{
		{name: "plain https", rawURL: "https://example.com/page"},
		{name: "plain http", rawURL: "http://example.com"},
		{name: "explicit 443", rawURL: "https://example.com:443/x"},
		{name: "ftp scheme", rawURL: "ftp://example.com/file", wantErr: errFetchScheme},
		{name: "file scheme no host", rawURL: "file:///etc/passwd", wantAnyErr: true},
		{name: "localhost", rawURL: "https://localhost/admin", wantErr: errFetchHost},
		{name: "localhost subdomain", rawURL: "https://db.localhost/", wantErr: errFetchHost},
		{name: "dot local", rawURL: "https://printer.local/", wantErr: errFetchHost},
		{name: "dot internal", rawURL: "https://metadata.internal/", wantErr: errFetchHost},
		{name: "loopback ip", rawURL: "http://127.0.0.1/", wantErr: errFetchHost},
		{name: "private ip", rawURL: "http://10.0.0.5/", wantErr: errFetchHost},
		{name: "link local ip", rawURL: "http://169.254.169.254/latest/meta-data", wantErr: errFetchHost},
		{name: "odd port", rawURL: "https://example.com:8443/", wantErr: errFetchPort},
		{name: "non-numeric port", rawURL: "https://example.com:abc/", wantAnyErr: true},
	}

	for _, tc := range cases {
		parsed, err := validateFetchURL(tc.rawURL)
		switch {
		case tc.wantErr != nil:
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
			}
		case tc.wantAnyErr:
			if err == nil {
				t.Fatalf("%s: expected an error", tc.name)
			}
		default:
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			if parsed == nil {
				t.Fatalf("%s: expected parsed url", tc.name)
			}
		}
	}
}

func TestIsNonPublicIP(t *testing.T) {
	nonPublic := []string{"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.1.1", "169.254.1.1", "0.0.0.0", "::1", "fd00::1", "fe80::1"}
	for _, raw := range nonPublic {
		if !isNonPublicIP(netip.MustParseAddr(raw)) {
			t.Fatalf("%s should be non-public", raw)
		}
	}
	public := []string{"8.8.8.8", "93.184.216.34", "2001:4860:4860::8888"}
	for _, raw := range public {
		if isNonPublicIP(netip.MustParseAddr(raw)) {
			t.Fatalf("%s should be public", raw)
		}
	}
}

func TestIsInternalHostname(t *testing.T) {
	if !isInternalHostname("localhost") || !isInternalHostname("nas.local") || !isInternalHostname("vault.internal") {
		t.Fatal("internal hostnames not detected")
	}
	if isInternalHostname("example.com") || isInternalHostname("locallyhosted.com") {
		t.Fatal("public hostnames misclassified")
	}
}
