// Seeds the players table from a catalog JSON file so the postgres
// adapter has a pool to draft from. Re-running upserts, so a refreshed
// ADP file can be loaded between drafts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bestballhq/draftengine/go/internal/catalog"
	"github.com/bestballhq/draftengine/go/internal/dbconfig"
)

func main() {
	path := flag.String("catalog", "players.json", "path to the player catalog JSON")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env")
	}

	ctx := context.Background()

	players, err := catalog.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
		os.Exit(1)
	}

	pool, err := dbconfig.NewConfigFromEnv().Pool(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, written, errs := len(players), 0, 0
	for _, p := range players {
		_, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, full_name, position, team, bye_week, adp, projected_points
            ) VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT (id) DO UPDATE SET
              full_name = EXCLUDED.full_name,
              position = EXCLUDED.position,
              team = EXCLUDED.team,
              bye_week = EXCLUDED.bye_week,
              adp = EXCLUDED.adp,
              projected_points = EXCLUDED.projected_points
        `, p.ID, p.FullName, p.Position, p.Team, p.ByeWeek, p.ADP, p.ProjectedPoints)
		if err != nil {
			errs++
			continue
		}
		written++
	}
	fmt.Printf("Players seed: total=%d written=%d errors=%d\n", total, written, errs)
}
