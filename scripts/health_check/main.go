package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"star-core/internal/conformance"
	"star-core/internal/profile"
	"star-core/internal/runtime"
	"star-core/pkg/config"
	"star-core/pkg/db"
)

type HealthStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthReport struct {
	Overall  string         `json:"overall"`
	Services []HealthStatus `json:"services"`
}

const smokeScript = `len = input.int(5, title="Length")
m = ta.sma(close, len)
strategy.entry("L", 1)
plot(m)`

func main() {
	fmt.Println("Star Script Health Check")
	fmt.Println("========================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	report := HealthReport{
		Overall:  "HEALTHY",
		Services: make([]HealthStatus, 0),
	}

	// 1. Config check
	report.Services = append(report.Services, checkConfig(cfg, err))
	if err == nil {
		// 2. Database check
		report.Services = append(report.Services, checkDatabase(ctx, cfg))
		// 3. Profiles check
		report.Services = append(report.Services, checkProfiles(cfg))
		// 4. Interpreter smoke run
		report.Services = append(report.Services, checkInterpreter(cfg))
		// 5. Parser conformance
		report.Services = append(report.Services, checkParsers())
		// 6. API server check
		report.Services = append(report.Services, checkAPIServer(ctx, cfg))
	}

	// Determine overall status
	for _, svc := range report.Services {
		if svc.Status == "UNHEALTHY" {
			report.Overall = "UNHEALTHY"
			break
		} else if svc.Status == "DEGRADED" && report.Overall != "UNHEALTHY" {
			report.Overall = "DEGRADED"
		}
	}

	fmt.Println("Results:")
	fmt.Println("--------")
	for _, svc := range report.Services {
		statusIcon := "✓"
		if svc.Status == "UNHEALTHY" {
			statusIcon = "✗"
		} else if svc.Status == "DEGRADED" {
			statusIcon = "⚠"
		}
		fmt.Printf("%s %-20s %s %s\n", statusIcon, svc.Service, svc.Status, svc.Message)
	}

	fmt.Println()
	fmt.Printf("Overall Status: %s\n", report.Overall)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		jsonData, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(jsonData))
	}

	if report.Overall == "UNHEALTHY" {
		os.Exit(1)
	}
}

func newStatus(service string) HealthStatus {
	return HealthStatus{Service: service, Status: "HEALTHY", Timestamp: time.Now()}
}

func checkConfig(cfg *config.Config, err error) HealthStatus {
	status := newStatus("Configuration")
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Failed to load: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("Port=%s OpLimit=%d", cfg.Port, cfg.OpLimit)
	return status
}

func checkDatabase(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Database")

	database, err := db.New(cfg.DBPath)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Connection failed: %v", err)
		return status
	}
	defer database.Close()

	if err := db.ApplyMigrations(database); err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Migrations failed: %v", err)
		return status
	}
	runs, err := database.Queries().ListRuns(ctx, 1)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Query failed: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("Connected (%s, latest runs=%d)", cfg.DBPath, len(runs))
	return status
}

func checkProfiles(cfg *config.Config) HealthStatus {
	status := newStatus("Profiles")
	if cfg.ProfilesPath == "" {
		status.Status = "DEGRADED"
		status.Message = "PROFILES_PATH not set; defaults only"
		return status
	}
	set, err := profile.Load(cfg.ProfilesPath)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Load failed: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("%d profiles", len(set.Names()))
	return status
}

func checkInterpreter(cfg *config.Config) HealthStatus {
	status := newStatus("Interpreter")
	res, err := runtime.Run(smokeScript, cfg.RuntimeConfig())
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Smoke run failed: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("plots=%d trades=%d ops=%d", len(res.Plots), len(res.Env.Strategy().Trades()), res.Env.Ops())
	return status
}

func checkParsers() HealthStatus {
	status := newStatus("Parser conformance")
	report := conformance.Default().Run(conformance.BuiltinSamples())
	if !report.OK() {
		status.Status = "DEGRADED"
	}
	status.Message = fmt.Sprintf("%d samples, %d mismatches", report.Samples, len(report.Mismatches))
	return status
}

func checkAPIServer(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("API Server")

	url := fmt.Sprintf("http://localhost:%s/health", cfg.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = err.Error()
		return status
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		status.Status = "DEGRADED"
		status.Message = "Not running"
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return status
	}
	status.Message = "Responding at " + url
	return status
}
