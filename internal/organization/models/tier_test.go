package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "ctn/pkg/domain"
)

func TestComputeTier(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no evidence yields the baseline tier", func(t *testing.T) {
		tier, method := ComputeTier(now, Evidence{})
		assert.Equal(t, TierBaseline, tier)
		assert.Equal(t, MethodEmailVerification, method)
	})

	t.Run("valid DNS proof yields tier 2", func(t *testing.T) {
		tier, method := ComputeTier(now, Evidence{DNSProof: &DNSProof{
			Domain:            "example.com",
			VerifiedAt:        now.Add(-time.Hour),
			ReverificationDue: now.Add(30 * 24 * time.Hour),
		}})
		assert.Equal(t, TierDNS, tier)
		assert.Equal(t, MethodDNS, method)
	})

	t.Run("expired DNS proof falls back to baseline", func(t *testing.T) {
		tier, _ := ComputeTier(now, Evidence{DNSProof: &DNSProof{
			Domain:            "example.com",
			ReverificationDue: now.Add(-time.Minute),
		}})
		assert.Equal(t, TierBaseline, tier)
	})

	t.Run("SSO assertion outranks DNS proof", func(t *testing.T) {
		tier, method := ComputeTier(now, Evidence{
			SSOAsserted: true,
			DNSProof: &DNSProof{
				Domain:            "example.com",
				ReverificationDue: now.Add(time.Hour),
			},
		})
		assert.Equal(t, TierSSO, tier)
		assert.Equal(t, MethodSSO, method)
	})
}

func TestRecompute(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("promotes after DNS evidence is set", func(t *testing.T) {
		org := NewOrganization(id.NewOrgID(), "Acme BV", "acme.example", now)
		verifiedAt := now
		due := now.Add(90 * 24 * time.Hour)
		org.DNSVerifiedDomain = "acme.example"
		org.DNSVerifiedAt = &verifiedAt
		org.DNSReverificationDue = &due

		org.Recompute(now)

		assert.Equal(t, TierDNS, org.Tier)
		assert.Equal(t, MethodDNS, org.Method)
	})

	t.Run("downgrades once the reverification deadline passes", func(t *testing.T) {
		org := NewOrganization(id.NewOrgID(), "Acme BV", "acme.example", now)
		verifiedAt := now.Add(-91 * 24 * time.Hour)
		due := now.Add(-24 * time.Hour)
		org.DNSVerifiedDomain = "acme.example"
		org.DNSVerifiedAt = &verifiedAt
		org.DNSReverificationDue = &due

		org.Recompute(now)

		assert.Equal(t, TierBaseline, org.Tier)
		assert.Equal(t, MethodEmailVerification, org.Method)
	})
}
