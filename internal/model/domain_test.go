package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name     string
		website  string
		expected string
	}{
		{"plain https", "https://acme.com", "acme.com"},
		{"strips www", "https://www.acme.com", "acme.com"},
		{"missing scheme", "acme.com", "acme.com"},
		{"missing scheme with www", "www.acme.com", "acme.com"},
		{"lowercases host", "https://WWW.Acme.COM/About", "acme.com"},
		{"keeps subdomain", "https://shop.acme.co.uk/products", "shop.acme.co.uk"},
		{"ignores port", "http://acme.com:8080", "acme.com"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDomain(tt.website))
		})
	}
}

func TestNormalizeWebsite(t *testing.T) {
	assert.Equal(t, "https://acme.com", NormalizeWebsite("acme.com"))
	assert.Equal(t, "http://acme.com", NormalizeWebsite("http://acme.com"))
	assert.Equal(t, "https://acme.com", NormalizeWebsite("  https://acme.com "))
	assert.Equal(t, "", NormalizeWebsite(""))
}

func TestRelevanceLevelFor(t *testing.T) {
	assert.Equal(t, RelevanceHigh, RelevanceLevelFor(10))
	assert.Equal(t, RelevanceHigh, RelevanceLevelFor(7))
	assert.Equal(t, RelevanceMedium, RelevanceLevelFor(6))
	assert.Equal(t, RelevanceMedium, RelevanceLevelFor(5))
	assert.Equal(t, RelevanceLow, RelevanceLevelFor(4))
	assert.Equal(t, RelevanceLow, RelevanceLevelFor(1))
}

func TestScoutRequestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		in          ScoutRequest
		wantMax     int
		wantMinRel  int
	}{
		{"defaults", ScoutRequest{Criteria: "x"}, 20, 5},
		{"max below floor", ScoutRequest{MaxResults: 2}, 5, 5},
		{"max above cap", ScoutRequest{MaxResults: 200}, 50, 5},
		{"min below floor", ScoutRequest{MinRelevanceScore: -3}, 20, 1},
		{"min above cap", ScoutRequest{MinRelevanceScore: 15}, 20, 10},
		{"in range untouched", ScoutRequest{MaxResults: 30, MinRelevanceScore: 7}, 30, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.wantMax, tt.in.MaxResults)
			assert.Equal(t, tt.wantMinRel, tt.in.MinRelevanceScore)
		})
	}
}
