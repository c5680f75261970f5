package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"qms-exporter/internal/security"
)

const (
	secret  = "devsecret"
	baseURL = "http://localhost:8080"
)

type Config struct {
	TotalRequests int
	Concurrency   int
	Kind          string
	SourceID      string
	Format        string
	Description   string
}

type Result struct {
	JobID          string
	Status         int
	AcceptDuration time.Duration
	TotalDuration  time.Duration // Time until job "COMPLETED"
	Pages          int
	Error          error
}

// Run against a server whose report source was filled by scripts/seed_db.
func main() {
	scenarios := []Config{
		{TotalRequests: 50, Concurrency: 10, Kind: "procedure", SourceID: "PR-001-v2", Format: "pdf", Description: "Baseline (single page procedure)"},
		{TotalRequests: 100, Concurrency: 50, Kind: "prescription-register", SourceID: "T1-2026", Format: "csv", Description: "Stress Test (register as CSV)"},
		{TotalRequests: 10, Concurrency: 4, Kind: "prescription-register", SourceID: "T1-2026", Format: "pdf", Description: "Paginated register (PDF, repeated headers)"},
	}

	for _, scenario := range scenarios {
		runScenario(scenario)
	}
}

func runScenario(cfg Config) {
	fmt.Printf("\n=======================================================\n")
	fmt.Printf("Scenario: %s\n", cfg.Description)
	fmt.Printf("Requests: %d | Concurrency: %d | Kind: %s | Format: %s\n", cfg.TotalRequests, cfg.Concurrency, cfg.Kind, cfg.Format)
	fmt.Printf("=======================================================\n")

	results := make(chan Result, cfg.TotalRequests)
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, cfg.Concurrency)

	startTime := time.Now()

	for i := 0; i < cfg.TotalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results <- executeRequest(cfg)

			if id%10 == 0 {
				fmt.Print(".")
			}
		}(i)
	}

	wg.Wait()
	close(results)
	totalTime := time.Since(startTime)
	fmt.Println()

	var acceptLatencies []time.Duration
	var processLatencies []time.Duration
	var failures, pages int

	for res := range results {
		if res.Error != nil || res.Status != http.StatusAccepted {
			failures++
			continue
		}
		acceptLatencies = append(acceptLatencies, res.AcceptDuration)
		if res.TotalDuration > 0 {
			processLatencies = append(processLatencies, res.TotalDuration)
		}
		pages = max(pages, res.Pages)
	}

	sort.Slice(acceptLatencies, func(i, j int) bool { return acceptLatencies[i] < acceptLatencies[j] })
	sort.Slice(processLatencies, func(i, j int) bool { return processLatencies[i] < processLatencies[j] })

	fmt.Printf("\nRESULTS:\n")
	fmt.Printf("Total Duration: %v\n", totalTime)
	fmt.Printf("Throughput: %.2f req/sec\n", float64(cfg.TotalRequests)/totalTime.Seconds())
	fmt.Printf("Success Rate: %.1f%%\n", float64(cfg.TotalRequests-failures)/float64(cfg.TotalRequests)*100)
	if pages > 0 {
		fmt.Printf("Pages per document: %d\n", pages)
	}
	if len(acceptLatencies) > 0 {
		fmt.Printf("API Response Time (P95): %v\n", acceptLatencies[int(float64(len(acceptLatencies))*0.95)])
	}
	if len(processLatencies) > 0 {
		fmt.Printf("Job Completion Time (P95): %v\n", processLatencies[int(float64(len(processLatencies))*0.95)])
	}
}

// signed builds a request carrying the X-Timestamp and X-Signature headers.
func signed(method, path string, body []byte) *http.Request {
	req, _ := http.NewRequest(method, baseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", security.Sign(secret, method, path, string(body), timestamp))
	return req
}

func executeRequest(cfg Config) Result {
	start := time.Now()

	body, _ := json.Marshal(map[string]string{
		"kind":      cfg.Kind,
		"source_id": cfg.SourceID,
		"format":    cfg.Format,
	})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(signed(http.MethodPost, "/exports", body))
	if err != nil {
		return Result{Error: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return Result{Status: resp.StatusCode, AcceptDuration: time.Since(start)}
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return Result{Status: resp.StatusCode, Error: err}
	}
	acceptTime := time.Since(start)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(120 * time.Second)

	for {
		select {
		case <-timeout:
			return Result{JobID: accepted.JobID, Status: http.StatusAccepted, AcceptDuration: acceptTime, Error: fmt.Errorf("timeout waiting for job")}
		case <-ticker.C:
			status, pages, err := checkStatus(accepted.JobID)
			if err != nil {
				continue // Retry on temp error
			}
			switch status {
			case "COMPLETED":
				return Result{
					JobID:          accepted.JobID,
					Status:         http.StatusAccepted,
					AcceptDuration: acceptTime,
					TotalDuration:  time.Since(start),
					Pages:          pages,
				}
			case "FAILED":
				return Result{JobID: accepted.JobID, Status: http.StatusAccepted, Error: fmt.Errorf("job failed")}
			}
		}
	}
}

func checkStatus(jobID string) (string, int, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(signed(http.MethodGet, "/exports/"+jobID, nil))
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("status check failed: %d", resp.StatusCode)
	}

	var data struct {
		Status string `json:"status"`
		Pages  int    `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", 0, err
	}
	return data.Status, data.Pages, nil
}
