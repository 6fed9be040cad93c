// Command docket is the docket CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/GoCodeAlone/docket/internal/version"
)

const defaultServer = "http://localhost:9090"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "docket server URL")
		token     = flag.String("token", os.Getenv("DOCKET_TOKEN"), "bearer token (see docketd -mint-token)")
	)
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cli := &Client{
		BaseURL:    strings.TrimRight(*serverURL, "/"),
		Token:      *token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "generate":
		err = cli.cmdGenerate(rest)
	case "alerts":
		err = cli.cmdAlerts(rest)
	case "matrix":
		err = cli.cmdMatrix(rest)
	case "serve":
		fmt.Fprintln(os.Stderr, "use docketd to run the server")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `docket - case task CLI

Usage:
  docket [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:9090)
  --token   <token>  bearer token (or $DOCKET_TOKEN)

Commands:
  version                                  print version
  status                                   show server status
  tasks [case]                             list tasks visible to you
  task create <case> <title>               create an ad hoc task
  task assign <id> <actor> <role> [name]   assign a task
  task complete <id>                       mark a task completed
  task cycle <id>                          advance a task's status
  task delete <id>                         delete a task
  generate <case> [stage]                  create the stage checklist
  alerts sol|ante-litem                    list deadline alerts
  matrix                                   show the checklist matrix
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Println(version.String("docket"))
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// do performs a request and decodes a JSON response into v (may be nil).
func (c *Client) do(method, path string, body any, v any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = strings.NewReader(string(b))
	}
	req, err := http.NewRequest(method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) get(path string, v any) error { return c.do(http.MethodGet, path, nil, v) }

func (c *Client) post(path string, body, v any) error { return c.do(http.MethodPost, path, body, v) }

// --- status ---

func (c *Client) cmdStatus(_ []string) error {
	var result map[string]string
	if err := c.get("/api/status", &result); err != nil {
		return err
	}
	fmt.Printf("status:  %s\n", result["status"])
	fmt.Printf("version: %s\n", result["version"])
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(args []string) error {
	path := "/api/tasks"
	if len(args) > 0 {
		path += "?case_id=" + url.QueryEscape(args[0])
	}
	var tasks []map[string]any
	if err := c.get(path, &tasks); err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	fmt.Printf("%-36s %-12s %-32s %-12s %-10s\n", "ID", "CASE", "TITLE", "STATUS", "DUE")
	fmt.Println(strings.Repeat("-", 106))
	for _, t := range tasks {
		status := strVal(t["status"])
		if t["overdue"] == true {
			status += "!"
		}
		fmt.Printf("%-36s %-12s %-32s %-12s %-10s\n",
			strVal(t["id"]),
			truncate(strVal(t["case_id"]), 11),
			truncate(strVal(t["title"]), 31),
			status,
			dateVal(t["due_date"]),
		)
	}
	return nil
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: docket task <create|assign|complete|cycle|delete> ...")
	}
	sub, id := args[0], args[1]
	var result map[string]any
	switch sub {
	case "create":
		if len(args) < 3 {
			return fmt.Errorf("usage: docket task create <case> <title>")
		}
		body := map[string]string{"case_id": id, "title": strings.Join(args[2:], " ")}
		if err := c.post("/api/tasks", body, &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "assign":
		if len(args) < 4 {
			return fmt.Errorf("usage: docket task assign <id> <actor> <role> [name]")
		}
		body := map[string]string{"actor_id": args[2], "role": args[3]}
		if len(args) > 4 {
			body["name"] = strings.Join(args[4:], " ")
		}
		if err := c.post("/api/tasks/"+id+"/assign", body, &result); err != nil {
			return err
		}
		fmt.Printf("task %s assigned to %s (%s)\n", id, args[2], strVal(result["status"]))
	case "complete", "cycle":
		if err := c.post("/api/tasks/"+id+"/"+sub, nil, &result); err != nil {
			return err
		}
		fmt.Printf("task %s is %s\n", id, strVal(result["status"]))
	case "delete":
		if err := c.do(http.MethodDelete, "/api/tasks/"+id, nil, nil); err != nil {
			return err
		}
		fmt.Printf("task %s deleted\n", id)
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- generation ---

func (c *Client) cmdGenerate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: docket generate <case> [stage]")
	}
	body := map[string]string{}
	if len(args) > 1 {
		body["stage"] = args[1]
	}
	var created []map[string]any
	if err := c.post("/api/cases/"+url.PathEscape(args[0])+"/generate", body, &created); err != nil {
		return err
	}
	fmt.Printf("generated %d tasks for case %s\n", len(created), args[0])
	for _, t := range created {
		fmt.Printf("  %-32s %-8s %s\n", truncate(strVal(t["title"]), 31), strVal(t["priority"]), dateVal(t["due_date"]))
	}
	return nil
}

// --- alerts ---

func (c *Client) cmdAlerts(args []string) error {
	kind := "sol"
	if len(args) > 0 {
		kind = args[0]
	}
	if kind != "sol" && kind != "ante-litem" {
		return fmt.Errorf("usage: docket alerts sol|ante-litem")
	}
	var resp struct {
		Entries []map[string]any `json:"entries"`
		Summary map[string]int   `json:"summary"`
	}
	if err := c.get("/api/alerts/"+kind, &resp); err != nil {
		return err
	}
	if len(resp.Entries) == 0 {
		fmt.Println("no alerts")
		return nil
	}
	fmt.Printf("%-12s %-30s %-10s %6s %-8s\n", "CASE", "NAME", "DEADLINE", "DAYS", "TIER")
	fmt.Println(strings.Repeat("-", 70))
	for _, e := range resp.Entries {
		cs, _ := e["case"].(map[string]any)
		fmt.Printf("%-12s %-30s %-10s %6s %-8s\n",
			truncate(strVal(cs["id"]), 11),
			truncate(strVal(cs["name"]), 29),
			dateVal(e["deadline"]),
			strVal(e["days_remaining"]),
			strVal(e["label"]),
		)
	}
	fmt.Printf("\n%d total: %d overdue, %d urgent, %d warning, %d monitor\n",
		resp.Summary["total"], resp.Summary["overdue"], resp.Summary["urgent"],
		resp.Summary["warning"], resp.Summary["monitor"])
	return nil
}

// --- matrix ---

func (c *Client) cmdMatrix(_ []string) error {
	var resp struct {
		Columns []string `json:"columns"`
		Rows    []struct {
			Case  map[string]any            `json:"case"`
			Tasks map[string]map[string]any `json:"tasks"`
			Stats map[string]int            `json:"stats"`
		} `json:"rows"`
	}
	if err := c.get("/api/matrix", &resp); err != nil {
		return err
	}
	if len(resp.Rows) == 0 {
		fmt.Println("no cases")
		return nil
	}
	fmt.Printf("%-12s", "CASE")
	for i := range resp.Columns {
		fmt.Printf(" %3d", i+1)
	}
	fmt.Printf(" %6s\n", "DONE")
	for _, row := range resp.Rows {
		fmt.Printf("%-12s", truncate(strVal(row.Case["id"]), 11))
		for _, col := range resp.Columns {
			fmt.Printf(" %3s", cellMark(row.Tasks[col]))
		}
		done, total := row.Stats["completed"], row.Stats["total"]
		fmt.Printf(" %3d/%-2d\n", done, total)
	}
	fmt.Println()
	for i, col := range resp.Columns {
		fmt.Printf("%3d  %s\n", i+1, col)
	}
	return nil
}

func cellMark(t map[string]any) string {
	if t == nil {
		return "."
	}
	switch strVal(t["status"]) {
	case "completed":
		return "x"
	case "in_progress":
		return "~"
	case "cancelled":
		return "-"
	default:
		return "o"
	}
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func dateVal(v any) string {
	s := strVal(v)
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
