// Command seed loads the model catalog from a YAML file into the
// database. Meant for development and first boot; production catalogs are
// maintained by the ingestion process.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/luminet/hub-api/pkg/config"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/pgutil"
	"github.com/luminet/hub-api/pkg/schema"
)

type catalogFile struct {
	Models []catalogModel `yaml:"models"`
}

type catalogModel struct {
	ID      string `yaml:"id"`
	CPT     int64  `yaml:"cpt"`
	Enabled *bool  `yaml:"enabled"`
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	catalogPath := flag.String("models", "models.yaml", "Path to model catalog file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	raw, err := os.ReadFile(*catalogPath)
	if err != nil {
		log.Fatalf("error reading catalog file: %s", err.Error())
	}
	var catalog catalogFile
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		log.Fatalf("error parsing catalog file: %s", err.Error())
	}
	if len(catalog.Models) == 0 {
		log.Fatalf("catalog file %s lists no models", *catalogPath)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	store := hubdb.NewStore(db)
	ctx := context.Background()

	for _, m := range catalog.Models {
		if m.ID == "" {
			log.Fatalf("catalog entry with empty model id")
		}
		cpt := m.CPT
		if cpt <= 0 {
			cpt = 1
		}
		enabled := true
		if m.Enabled != nil {
			enabled = *m.Enabled
		}
		err := store.UpsertModel(ctx, &schema.Model{
			ID:      m.ID,
			CPT:     cpt,
			Enabled: enabled,
		})
		if err != nil {
			log.Fatalf("error seeding model %s: %s", m.ID, err.Error())
		}
		log.Printf("seeded model %s (cpt=%d enabled=%t)", m.ID, cpt, enabled)
	}

	log.Printf("seeded %d models", len(catalog.Models))
}
