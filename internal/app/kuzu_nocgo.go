//go:build !cgo

package app

import (
	"errors"

	"github.com/dusk-indust/casier/internal/depgraph"
)

func openKuzu(string) (depgraph.Store, error) {
	return nil, errors.New("kuzuPath requires a cgo build")
}
