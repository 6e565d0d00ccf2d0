package models

import "time"

// Trust tiers. Lower numeral means deeper-verified identity.
const (
	TierSSO      = 1
	TierDNS      = 2
	TierBaseline = 3
)

// DNSProof is the evidence produced by a successful DNS ownership proof.
// It stops being valid once the reverification deadline passes.
type DNSProof struct {
	Domain            string
	VerifiedAt        time.Time
	ReverificationDue time.Time
}

// ValidAt reports whether the proof still counts as evidence at the given
// instant.
func (p DNSProof) ValidAt(now time.Time) bool {
	return p.Domain != "" && now.Before(p.ReverificationDue)
}

// Evidence is the full set of identity proofs considered by the tier
// computation.
type Evidence struct {
	SSOAsserted bool
	DNSProof    *DNSProof
}

// ComputeTier derives the tier and method from the currently-valid evidence.
// This is the only place tier is decided; callers mutate evidence fields and
// go through Recompute.
func ComputeTier(now time.Time, ev Evidence) (int, AuthMethod) {
	if ev.SSOAsserted {
		return TierSSO, MethodSSO
	}
	if ev.DNSProof != nil && ev.DNSProof.ValidAt(now) {
		return TierDNS, MethodDNS
	}
	return TierBaseline, MethodEmailVerification
}

// Recompute rebuilds the organization's tier and method from its evidence
// fields and stamps UpdatedAt.
func (o *Organization) Recompute(now time.Time) {
	ev := Evidence{SSOAsserted: o.SSOAsserted}
	if o.DNSVerifiedDomain != "" && o.DNSReverificationDue != nil {
		proof := DNSProof{
			Domain:            o.DNSVerifiedDomain,
			ReverificationDue: *o.DNSReverificationDue,
		}
		if o.DNSVerifiedAt != nil {
			proof.VerifiedAt = *o.DNSVerifiedAt
		}
		ev.DNSProof = &proof
	}
	o.Tier, o.Method = ComputeTier(now, ev)
	o.UpdatedAt = now
}
