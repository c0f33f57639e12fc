package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/varqopt/internal/store"
)

var serverURL string

// jobStatus mirrors the server's job status document.
type jobStatus struct {
	ID             string           `json:"id"`
	State          string           `json:"state"`
	Spec           store.JobSpec    `json:"spec"`
	Evaluations    int              `json:"evaluations"`
	LastCost       float64          `json:"lastCost"`
	BestCost       float64          `json:"bestCost"`
	Elapsed        float64          `json:"elapsed"`
	EvalsPerSecond float64          `json:"evalsPerSecond"`
	Error          string           `json:"error"`
	Result         *store.RunRecord `json:"result"`
}

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(serverURL, "/")
	if len(args) == 0 {
		return listJobs(cmd.OutOrStdout(), base+"/api/v1/jobs")
	}
	jobID := args[0]
	return getJobStatus(cmd.OutOrStdout(), fmt.Sprintf("%s/api/v1/jobs/%s/status", base, jobID), jobID)
}

func fetchJSON(url string, v any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var errNotFound = errors.New("not found")

func listJobs(out io.Writer, url string) error {
	var jobs []jobStatus
	if err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tSOLVER\tINPUT\tSTATE\tEVALS\tBEST COST")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.6f\n",
			displayID(job.ID), job.Spec.Solver, job.Spec.Input(), job.State, job.Evaluations, job.BestCost)
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal jobs: %d\n", len(jobs))
	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobStatus
	if err := fetchJSON(url, &status); err != nil {
		if errors.Is(err, errNotFound) {
			return fmt.Errorf("job not found: %s", jobID)
		}
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintf(out, "Solver: %s on %s\n\n", status.Spec.Solver, status.Spec.Input())

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Evaluations: %d\n", status.Evaluations)
	if status.Evaluations > 0 {
		fmt.Fprintf(out, "  Last Cost: %.6f\n", status.LastCost)
		fmt.Fprintf(out, "  Best Cost: %.6f\n", status.BestCost)
	}
	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.EvalsPerSecond > 0 {
		fmt.Fprintf(out, "  Throughput: %.1f evals/sec\n", status.EvalsPerSecond)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}
	if status.Result != nil {
		fmt.Fprintln(out, "\nResult:")
		printRecord(out, status.Result)
	}
	return nil
}
