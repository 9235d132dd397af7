// Package storage persists the state of a relic pool between process runs.
package storage

import (
	"encoding/gob"

	"github.com/bitfsorg/relicpool-go/collectible"
	"github.com/bitfsorg/relicpool-go/forge"
	"github.com/bitfsorg/relicpool-go/token"
	"github.com/bitfsorg/relicpool-go/vrf"
)

func init() {
	gob.Register(forge.MintRequest{})
	gob.Register(forge.FusionRequest{})
}

// World is everything a pool needs to resume: the engine and the ledgers it
// drives.
type World struct {
	Engine forge.Snapshot
	Items  []collectible.Holding
	Asset  token.Snapshot
	Native token.Snapshot
	Random vrf.Snapshot
}

// Store saves and loads a World. Save replaces whatever was stored before.
type Store interface {
	Load() (*World, error)
	Save(w *World) error
}
