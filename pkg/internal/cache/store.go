package cache

import (
	"github.com/dgraph-io/ristretto"
	ristrettoCache "github.com/eko/gocache/store/ristretto/v4"
	"github.com/rs/zerolog/log"
)

var S *ristrettoCache.RistrettoStore

func NewStore() error {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     10 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}

	S = ristrettoCache.NewRistretto(inner)
	log.Info().Msg("Local cache store is ready.")
	return nil
}
