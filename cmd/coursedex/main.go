// Command coursedex indexes books, videos and courses into semantic chunks
// and answers similarity searches over them.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/coursedex/internal/adapters/driving/cli"
	"github.com/custodia-labs/coursedex/internal/app"
	"github.com/custodia-labs/coursedex/internal/core/ports/driving"
)

func main() {
	cli.SetBuilder(func(ctx context.Context, configPath string) (*cli.Services, error) {
		a, err := app.New(ctx, configPath)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Indexer:   a.Indexer,
			Retriever: a.Retriever,
			Importer:  a.Importer,
			Queue:     a.Queue,
			NewWorkerPool: func(count int) driving.WorkerPool {
				return a.WorkerPool(count)
			},
			Close: a.Close,
		}, nil
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
