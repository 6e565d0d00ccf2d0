package dnsverify

import (
	"context"
	"errors"
	"net"
	"time"
)

// Resolver looks up TXT records. Absence of the record is not an error: it
// returns an empty list. A non-nil error is a resolver-level failure
// (transport, timeout, SERVFAIL) and counts toward the failed-token policy.
type Resolver interface {
	LookupTXT(ctx context.Context, recordName string) ([]string, error)
}

// NetResolver adapts net.Resolver to the Resolver port with a bounded
// per-lookup timeout so attempts never hang on a slow nameserver.
type NetResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewNetResolver builds a NetResolver using the system resolver.
func NewNetResolver(timeout time.Duration) *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver, timeout: timeout}
}

func (r *NetResolver) LookupTXT(ctx context.Context, recordName string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	txts, err := r.resolver.LookupTXT(ctx, recordName)
	if err != nil {
		// NXDOMAIN means the operator has not published the record yet;
		// that is a normal pending state, not a resolver failure.
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}
	return txts, nil
}
