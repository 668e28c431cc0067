// matchctl is an operations CLI for the matching service: it scores record
// pairs offline and runs batch matching passes against a live store.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	postgres "github.com/fast-shipment/matching-api/internal/adapters/postgres"
	pgmatchrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/matchrepo"
	pgofferrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/offerrepo"
	pgshipmentrepo "github.com/fast-shipment/matching-api/internal/adapters/postgres/shipmentrepo"
	"github.com/fast-shipment/matching-api/internal/app/matching"
	"github.com/fast-shipment/matching-api/internal/domain"
	"github.com/fast-shipment/matching-api/internal/match"
	platformclock "github.com/fast-shipment/matching-api/internal/platform/clock"
)

func main() {
	app := &cli.App{
		Name:  "matchctl",
		Usage: "Utilities for the shipment matching engine",
		Commands: []*cli.Command{
			scoreCmd,
			passCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// offerFile and shipmentFile are the JSON shapes accepted by `score`.
type offerFile struct {
	FromCountry     string   `json:"from_country"`
	FromCity        string   `json:"from_city"`
	ToCountry       string   `json:"to_country"`
	ToCity          string   `json:"to_city"`
	TripDate        string   `json:"trip_date"`
	AvailableWeight float64  `json:"available_weight"`
	PricePerKg      *float64 `json:"price_per_kg"`
	CarrierType     string   `json:"carrier_type"`
}

type shipmentFile struct {
	FromCountry string   `json:"from_country"`
	FromCity    string   `json:"from_city"`
	ToCountry   string   `json:"to_country"`
	ToCity      string   `json:"to_city"`
	NeededDate  string   `json:"needed_date"`
	Weight      float64  `json:"weight"`
	MaxPrice    *float64 `json:"max_price"`
	ShipperType string   `json:"shipper_type"`
}

var scoreCmd = &cli.Command{
	Name:  "score",
	Usage: "Score an offer/shipment pair from JSON files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "offer",
			Required: true,
			Usage:    "path to the offer JSON file",
		},
		&cli.StringFlag{
			Name:     "shipment",
			Required: true,
			Usage:    "path to the shipment JSON file",
		},
	},
	Action: func(ctx *cli.Context) error {
		var of offerFile
		if err := readJSONFile(ctx.String("offer"), &of); err != nil {
			return err
		}
		var sf shipmentFile
		if err := readJSONFile(ctx.String("shipment"), &sf); err != nil {
			return err
		}

		offer := domain.TransportOffer{
			Route:           domain.Route{FromCountry: of.FromCountry, FromCity: of.FromCity, ToCountry: of.ToCountry, ToCity: of.ToCity},
			AvailableWeight: of.AvailableWeight,
			PricePerKg:      of.PricePerKg,
			CarrierType:     domain.CarrierType(of.CarrierType),
		}
		if of.TripDate != "" {
			t, err := time.ParseInLocation("2006-01-02", of.TripDate, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid trip_date: %w", err)
			}
			offer.TripDate = t
		}
		shipment := domain.ShipmentRequest{
			Route:       domain.Route{FromCountry: sf.FromCountry, FromCity: sf.FromCity, ToCountry: sf.ToCountry, ToCity: sf.ToCity},
			Weight:      sf.Weight,
			MaxPrice:    sf.MaxPrice,
			ShipperType: domain.ShipperType(sf.ShipperType),
		}
		if sf.NeededDate != "" {
			t, err := time.ParseInLocation("2006-01-02", sf.NeededDate, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid needed_date: %w", err)
			}
			shipment.NeededDate = t
		}

		cfg := match.DefaultConfig()
		score, b := match.Score(offer, shipment, cfg)
		out := map[string]any{
			"score": score,
			"breakdown": map[string]int{
				"route":    b.Route,
				"date":     b.Date,
				"capacity": b.Capacity,
				"type":     b.Type,
			},
			"reasons": match.Reasons(offer, shipment, b),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var passCmd = &cli.Command{
	Name:  "pass",
	Usage: "Run a persisting matching pass against the Postgres store",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "dsn",
			Required: true,
			Usage:    "postgres connection string",
			EnvVars:  []string{"POSTGRES_DSN"},
		},
		&cli.StringFlag{
			Name:  "offer-id",
			Usage: "anchor the pass on this offer; omit both anchors to sweep every available offer",
		},
		&cli.StringFlag{
			Name:  "shipment-id",
			Usage: "anchor the pass on this shipment",
		},
		&cli.IntFlag{
			Name:  "min-score",
			Value: match.DefaultConfig().MinScore,
			Usage: "suggestion threshold (0-100)",
		},
		&cli.IntFlag{
			Name:  "top-n",
			Value: match.DefaultConfig().TopN,
			Usage: "keep at most this many suggestions (0 = unlimited)",
		},
	},
	Action: func(ctx *cli.Context) error {
		offerID := ctx.String("offer-id")
		shipmentID := ctx.String("shipment-id")
		if offerID != "" && shipmentID != "" {
			return fmt.Errorf("--offer-id and --shipment-id are mutually exclusive")
		}

		pool, err := postgres.NewPool(ctx.Context, ctx.String("dsn"), postgres.PoolOptions{})
		if err != nil {
			return err
		}
		defer pool.Close()

		offerRepo := pgofferrepo.NewRepo(pool)
		shipmentRepo := pgshipmentrepo.NewRepo(pool)
		matchRepo := pgmatchrepo.NewRepo(pool)

		cfg := match.DefaultConfig()
		cfg.MinScore = ctx.Int("min-score")
		cfg.TopN = ctx.Int("top-n")
		svc := matching.NewService(offerRepo, shipmentRepo, matchRepo, platformclock.NewSystemClock(), matching.Options{
			Config: cfg,
		})

		switch {
		case offerID != "":
			offer, err := offerRepo.GetByID(ctx.Context, domain.OfferID(offerID))
			if err != nil {
				return fmt.Errorf("load offer: %w", err)
			}
			res, err := svc.RunPassForOffer(ctx.Context, offer.UserID, offer.ID)
			if err != nil {
				return err
			}
			printPassResult(res)
		case shipmentID != "":
			sh, err := shipmentRepo.GetByID(ctx.Context, domain.ShipmentID(shipmentID))
			if err != nil {
				return fmt.Errorf("load shipment: %w", err)
			}
			res, err := svc.RunPassForShipment(ctx.Context, sh.UserID, sh.ID)
			if err != nil {
				return err
			}
			printPassResult(res)
		default:
			open, err := offerRepo.ListOpen(ctx.Context)
			if err != nil {
				return fmt.Errorf("list open offers: %w", err)
			}
			var created, existing int
			for _, offer := range open {
				res, err := svc.RunPassForOffer(ctx.Context, offer.UserID, offer.ID)
				if err != nil {
					return fmt.Errorf("pass for offer %s: %w", offer.ID, err)
				}
				created += res.Created
				existing += res.Existing
			}
			fmt.Printf("swept %d open offers: created %d, existing %d\n", len(open), created, existing)
		}
		return nil
	},
}

func printPassResult(res matching.PassResult) {
	fmt.Printf("suggestions: %d (created %d, existing %d)\n", len(res.Suggestions), res.Created, res.Existing)
	for _, sg := range res.Suggestions {
		fmt.Printf("  %s <-> %s score=%d match=%s\n", sg.Offer.ID, sg.Shipment.ID, sg.Score, sg.MatchID)
	}
}

func readJSONFile(path string, dst any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
