package panel

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
)

// phpImages are the interpreter images hosted sites can run on
var phpImages = []string{ImagePHP83, ImagePHP82}

// Runtimes pre-pulls the PHP interpreter images so site deployments never
// block on a registry. Pulls run concurrently; they share no state.
type Runtimes struct {
	deps   *Deps
	logger zerolog.Logger
}

// NewRuntimes creates the runtime module
func NewRuntimes(deps *Deps) *Runtimes {
	return &Runtimes{
		deps:   deps,
		logger: log.WithModule("runtime"),
	}
}

// Name implements module.Module
func (r *Runtimes) Name() string { return "runtime" }

// Dependencies implements module.Module
func (r *Runtimes) Dependencies() []string { return nil }

// Install pulls every interpreter image and joins on all of them
func (r *Runtimes) Install(ctx context.Context) error {
	r.logger.Info().Strs("images", phpImages).Msg("Pulling runtime images")
	if err := r.deps.Runtime.PullImages(ctx, phpImages); err != nil {
		return err
	}
	return nil
}

// Status reports which interpreter images are present on the host
func (r *Runtimes) Status(ctx context.Context) (*module.Status, error) {
	var missing []string
	for _, ref := range phpImages {
		present, err := r.deps.Runtime.ImageExists(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !present {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return &module.Status{
			Module: r.Name(),
			Detail: fmt.Sprintf("missing images: %s", strings.Join(missing, ", ")),
		}, nil
	}
	return &module.Status{Module: r.Name(), Healthy: true}, nil
}
