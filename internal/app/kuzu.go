//go:build cgo

package app

import "github.com/dusk-indust/casier/internal/depgraph"

func openKuzu(path string) (depgraph.Store, error) {
	return depgraph.NewKuzuFileStore(path)
}
