// Copyright 2025 Certen Protocol

package entities

// StakeDistributionParty is one signer's stake weight within the
// distribution an AVK was built from.
type StakeDistributionParty struct {
	PartyID string `json:"party_id"`
	Stake   uint64 `json:"stake"`
}
