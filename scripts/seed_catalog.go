// seed_catalog.go — standalone script to load a CSV of scored alternatives into an Elicit catalog.
//
// The first row names the criteria after a leading label column:
//
//	label,battery,weight,price
//	alpha,0.5,0.2,0.9
//
// Usage:
//
//	go run scripts/seed_catalog.go -csv laptops.csv -name laptops -api http://localhost:8700 -client seed
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type item struct {
	Label  string    `json:"label"`
	Scores []float64 `json:"scores"`
}

type catalogRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Criteria     []string `json:"criteria,omitempty"`
	Alternatives []item   `json:"alternatives"`
}

func main() {
	csvPath := flag.String("csv", "catalog.csv", "path to CSV file")
	name := flag.String("name", "", "catalog name (default: file name)")
	description := flag.String("description", "", "catalog description")
	apiURL := flag.String("api", "http://localhost:8700", "Elicit API base URL")
	clientID := flag.String("client", "seed", "X-Client-ID header value")
	dryRun := flag.Bool("dry-run", false, "print the catalog without posting")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	req, err := parseCatalog(f)
	if err != nil {
		log.Fatalf("parse %s: %v", *csvPath, err)
	}
	req.Name = *name
	if req.Name == "" {
		req.Name = strings.TrimSuffix(filepath.Base(*csvPath), filepath.Ext(*csvPath))
	}
	req.Description = *description

	log.Printf("parsed %d alternatives over %d criteria from %s", len(req.Alternatives), len(req.Criteria), *csvPath)

	if *dryRun {
		for i, it := range req.Alternatives {
			fmt.Printf("[%d] %s %v\n", i+1, it.Label, it.Scores)
		}
		return
	}

	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequest("POST", *apiURL+"/api/v1/catalogs", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Client-ID", *clientID)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		log.Fatalf("post catalog: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("post catalog: status %d: %s", resp.StatusCode, strings.TrimSpace(string(out)))
	}

	var created struct {
		ID string `json:"catalog_id"`
	}
	_ = json.Unmarshal(out, &created)
	log.Printf("done: catalog %s created", created.ID)
}

func parseCatalog(r io.Reader) (*catalogRequest, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("need a header row and at least one alternative")
	}
	header := rows[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a label column and at least one criterion")
	}

	req := &catalogRequest{}
	for _, c := range header[1:] {
		req.Criteria = append(req.Criteria, strings.TrimSpace(c))
	}
	for i, row := range rows[1:] {
		it := item{Label: strings.TrimSpace(row[0])}
		for j, cell := range row[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+2, j+2, err)
			}
			it.Scores = append(it.Scores, v)
		}
		req.Alternatives = append(req.Alternatives, it)
	}
	return req, nil
}
