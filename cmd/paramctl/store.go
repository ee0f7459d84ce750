package main

import (
	"context"
	"fmt"
	"time"

	pgstore "github.com/narvanalabs/persistent-params/internal/store/postgres"
)

const commandTimeout = 2 * time.Minute

// openStore connects to the database named by --database-url or DATABASE_URL.
func openStore() (*pgstore.PostgresStore, error) {
	url, err := dsn()
	if err != nil {
		return nil, err
	}
	st, err := pgstore.NewPostgresStore(pgstore.DefaultConfig(url), log.WithComponent("store").Logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return st, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}
