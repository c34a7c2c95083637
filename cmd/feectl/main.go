package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type client struct {
	base     string
	password string
	http     *http.Client
}

func newClient() *client {
	base := os.Getenv("FEESCOPE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return &client{
		base:     strings.TrimRight(base, "/"),
		password: os.Getenv("FEESCOPE_PASSWORD"),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *client) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.password != "" {
		req.SetBasicAuth("feescope", c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

func parseArgs(args []string) map[string]string {
	result := make(map[string]string)
	for i := 0; i < len(args); i++ {
		if len(args[i]) > 2 && args[i][:2] == "--" && i+1 < len(args) {
			result[args[i][2:]] = args[i+1]
			i++
		}
	}
	return result
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, `  feectl run --chains base,mantle [--timeframe 7d]`)
	fmt.Fprintln(os.Stderr, `  feectl runs [--limit 10]`)
	fmt.Fprintln(os.Stderr, `  feectl report --id <run-id>`)
	fmt.Fprintln(os.Stderr, `  feectl schedules`)
	fmt.Fprintln(os.Stderr, `  feectl schedule-create --name "..." --schedule "0 9 * * 1" --chains base [--timeframe 7d]`)
	fmt.Fprintln(os.Stderr, `  feectl schedule-delete --id <schedule-id>`)
	fmt.Fprintln(os.Stderr, `  feectl status`)
	os.Exit(1)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	c := newClient()
	command := os.Args[1]
	args := parseArgs(os.Args[2:])

	var err error
	switch command {
	case "run":
		err = cmdRun(c, args)
	case "runs":
		err = cmdRuns(c, args)
	case "report":
		err = cmdReport(c, args)
	case "schedules":
		err = cmdSchedules(c)
	case "schedule-create":
		err = cmdScheduleCreate(c, args)
	case "schedule-delete":
		err = cmdScheduleDelete(c, args)
	case "status":
		err = cmdStatus(c)
	default:
		usage()
	}
	if err != nil {
		fatal("%v", err)
	}
}

func cmdRun(c *client, args map[string]string) error {
	if args["chains"] == "" {
		return fmt.Errorf("--chains is required")
	}
	body := map[string]any{
		"chains": strings.Split(args["chains"], ","),
	}
	if args["timeframe"] != "" {
		body["timeframe"] = args["timeframe"]
	}

	var resp struct {
		RunID     string `json:"run_id"`
		Status    string `json:"status"`
		Timeframe string `json:"timeframe"`
	}
	if err := c.do("POST", "/api/runs", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Run started: %s (%s, %s)\n", resp.RunID, args["chains"], resp.Timeframe)
	return nil
}

func cmdRuns(c *client, args map[string]string) error {
	path := "/api/runs"
	if args["limit"] != "" {
		if _, err := strconv.Atoi(args["limit"]); err != nil {
			return fmt.Errorf("--limit must be a number")
		}
		path += "?limit=" + args["limit"]
	}

	var runs []struct {
		ID        string   `json:"id"`
		Chains    []string `json:"chains"`
		Timeframe string   `json:"timeframe"`
		Status    string   `json:"status"`
		Source    string   `json:"source"`
	}
	if err := c.do("GET", path, nil, &runs); err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("  %s  %-9s  %s %s  [%s]\n", r.ID, r.Status, strings.Join(r.Chains, ","), r.Timeframe, r.Source)
	}
	return nil
}

func cmdReport(c *client, args map[string]string) error {
	if args["id"] == "" {
		return fmt.Errorf("--id is required")
	}

	var report json.RawMessage
	if err := c.do("GET", "/api/runs/"+args["id"]+"/report", nil, &report); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, report, "", "  "); err != nil {
		return err
	}
	fmt.Println(pretty.String())
	return nil
}

func cmdSchedules(c *client) error {
	var schedules []struct {
		ID          string   `json:"id"`
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Chains      []string `json:"chains"`
		Timeframe   string   `json:"timeframe"`
		Status      string   `json:"status"`
	}
	if err := c.do("GET", "/api/schedules", nil, &schedules); err != nil {
		return err
	}
	if len(schedules) == 0 {
		fmt.Println("No schedules found.")
		return nil
	}
	for _, s := range schedules {
		fmt.Printf("  %s  %-7s  %s  %s %s  [%s]\n", s.ID, s.Status, s.Name, strings.Join(s.Chains, ","), s.Timeframe, s.Description)
	}
	return nil
}

func cmdScheduleCreate(c *client, args map[string]string) error {
	if args["name"] == "" || args["schedule"] == "" || args["chains"] == "" {
		return fmt.Errorf("--name, --schedule, and --chains are required")
	}
	body := map[string]any{
		"name":     args["name"],
		"schedule": args["schedule"],
		"chains":   strings.Split(args["chains"], ","),
	}
	if args["timeframe"] != "" {
		body["timeframe"] = args["timeframe"]
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do("POST", "/api/schedules", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Schedule created: %s\n", resp.ID)
	return nil
}

func cmdScheduleDelete(c *client, args map[string]string) error {
	if args["id"] == "" {
		return fmt.Errorf("--id is required")
	}
	if err := c.do("DELETE", "/api/schedules/"+args["id"], nil, nil); err != nil {
		return err
	}
	fmt.Println("Schedule deleted.")
	return nil
}

func cmdStatus(c *client) error {
	var status struct {
		Version string         `json:"version"`
		Uptime  string         `json:"uptime"`
		Chains  []string       `json:"chains"`
		Runs    map[string]int `json:"runs"`
	}
	if err := c.do("GET", "/api/status", nil, &status); err != nil {
		return err
	}
	fmt.Printf("feescope %s, up %s\n", status.Version, status.Uptime)
	fmt.Printf("chains: %s\n", strings.Join(status.Chains, ", "))
	fmt.Printf("runs: %d running, %d completed, %d failed\n",
		status.Runs["running"], status.Runs["completed"], status.Runs["failed"])
	return nil
}
