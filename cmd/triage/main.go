// Command triage is the Triage CLI client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GoCodeAlone/triage/internal/version"
)

const defaultServer = "http://localhost:9090"

func main() {
	var (
		serverURL = flag.String("server", defaultServer, "triage server URL")
		token     = flag.String("token", os.Getenv("TRIAGE_TOKEN"), "JWT auth token")
		queue     = flag.String("queue", "default", "task queue name")
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
		Queue:      *queue,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	cmd := args[0]
	rest := args[1:]

	var err error
	switch cmd {
	case "version":
		err = cmdVersion(rest)
	case "login":
		err = cli.cmdLogin(rest)
	case "status":
		err = cli.cmdStatus(rest)
	case "queues":
		err = cli.cmdQueues(rest)
	case "tasks":
		err = cli.cmdTasks(rest)
	case "task":
		err = cli.cmdTask(rest)
	case "pending":
		err = cli.cmdPending(rest)
	case "feedback":
		err = cli.cmdFeedback(rest)
	case "stats":
		err = cli.cmdStats(rest)
	case "sla":
		err = cli.cmdSLA(rest)
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
	fmt.Fprint(os.Stderr, `triage - Triage CLI

Usage:
  triage [flags] <command> [args]

Flags:
  --server  <url>    server URL (default: http://localhost:9090)
  --token   <token>  JWT auth token (or $TRIAGE_TOKEN)
  --queue   <name>   task queue (default: "default")

Commands:
  version                         print version
  login <user> <pass>             obtain a JWT token
  status                          show server status
  queues                          list active queues
  tasks                           list tasks in the queue
  task create <type> <title>      create a task
  task show <id>                  show one task
  task assign <id> <assignee>     assign a task
  task approve <id> <by>          approve a task
  task reject <id> <by>           reject a task
  task defer <id> <by>            defer a task
  task escalate <id> [reason]     escalate a task
  pending [assignee]              show the pending queue
  feedback <task-id> <rating>     submit feedback (rating 0-5)
  stats                           show queue statistics
  sla                             show the SLA report
`)
}

// --- version ---

func cmdVersion(_ []string) error {
	fmt.Printf("triage %s\n", version.String())
	return nil
}

// Client holds HTTP client state for CLI commands.
type Client struct {
	BaseURL    string
	Token      string
	Queue      string
	HTTPClient *http.Client
}

func (c *Client) queuePath(suffix string) string {
	return "/api/queues/" + c.Queue + suffix
}

// get performs a GET and decodes JSON into v.
func (c *Client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
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
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// post performs a POST and decodes JSON response into v (may be nil).
func (c *Client) post(path string, body io.Reader, v any) error {
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
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
	if v != nil && resp.ContentLength != 0 {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

// --- login ---

func (c *Client) cmdLogin(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: triage login <user> <pass>")
	}
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, args[0], args[1])
	var result map[string]string
	if err := c.post("/api/auth/login", strings.NewReader(body), &result); err != nil {
		return err
	}
	fmt.Println(result["token"])
	return nil
}

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

// --- queues ---

func (c *Client) cmdQueues(_ []string) error {
	var queues []string
	if err := c.get("/api/queues", &queues); err != nil {
		return err
	}
	if len(queues) == 0 {
		fmt.Println("no active queues")
		return nil
	}
	for _, q := range queues {
		fmt.Println(q)
	}
	return nil
}

// --- tasks ---

func (c *Client) cmdTasks(_ []string) error {
	var tasks []map[string]any
	if err := c.get(c.queuePath("/tasks"), &tasks); err != nil {
		return err
	}
	printTaskTable(tasks)
	return nil
}

func (c *Client) cmdPending(args []string) error {
	assignee := ""
	if len(args) > 0 {
		assignee = args[0]
	}
	var tasks []map[string]any
	if err := c.get(c.queuePath("/pending?assignee="+assignee), &tasks); err != nil {
		return err
	}
	printTaskTable(tasks)
	return nil
}

func printTaskTable(tasks []map[string]any) {
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return
	}
	fmt.Printf("%-36s %-30s %-12s %-10s %-12s\n", "ID", "TITLE", "STATUS", "PRIORITY", "ASSIGNEE")
	fmt.Println(strings.Repeat("-", 104))
	for _, t := range tasks {
		fmt.Printf("%-36s %-30s %-12s %-10s %-12s\n",
			strVal(t["id"]),
			truncate(strVal(t["title"]), 29),
			strVal(t["status"]),
			strVal(t["priority"]),
			strVal(t["assignee"]),
		)
	}
}

// --- task subcommands ---

func (c *Client) cmdTask(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: triage task <create|show|assign|approve|reject|defer|escalate> ...")
		os.Exit(1)
	}
	sub := args[0]
	rest := args[1:]
	switch sub {
	case "create":
		if len(rest) < 2 {
			return fmt.Errorf("usage: triage task create <type> <title>")
		}
		body := fmt.Sprintf(`{"type":%q,"title":%q}`, rest[0], strings.Join(rest[1:], " "))
		var result map[string]any
		if err := c.post(c.queuePath("/tasks"), strings.NewReader(body), &result); err != nil {
			return err
		}
		fmt.Printf("created task %s\n", strVal(result["id"]))
	case "show":
		if len(rest) < 1 {
			return fmt.Errorf("usage: triage task show <id>")
		}
		var t map[string]any
		if err := c.get(c.queuePath("/tasks/"+rest[0]), &t); err != nil {
			return err
		}
		out, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "assign":
		if len(rest) < 2 {
			return fmt.Errorf("usage: triage task assign <id> <assignee>")
		}
		body := fmt.Sprintf(`{"assignee":%q}`, rest[1])
		if err := c.post(c.queuePath("/tasks/"+rest[0]+"/assign"), strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s assigned to %s\n", rest[0], rest[1])
	case "approve", "reject", "defer":
		if len(rest) < 2 {
			return fmt.Errorf("usage: triage task %s <id> <by>", sub)
		}
		body := fmt.Sprintf(`{"responded_by":%q}`, rest[1])
		if err := c.post(c.queuePath("/tasks/"+rest[0]+"/"+sub), strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s resolved (%s) by %s\n", rest[0], sub, rest[1])
	case "escalate":
		if len(rest) < 1 {
			return fmt.Errorf("usage: triage task escalate <id> [reason]")
		}
		reason := "manual escalation"
		if len(rest) > 1 {
			reason = strings.Join(rest[1:], " ")
		}
		body := fmt.Sprintf(`{"reason":%q}`, reason)
		if err := c.post(c.queuePath("/tasks/"+rest[0]+"/escalate"), strings.NewReader(body), nil); err != nil {
			return err
		}
		fmt.Printf("task %s escalated\n", rest[0])
	default:
		return fmt.Errorf("unknown task subcommand: %s", sub)
	}
	return nil
}

// --- feedback ---

func (c *Client) cmdFeedback(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: triage feedback <task-id> <rating> [comment]")
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil || rating < 0 || rating > 5 {
		return fmt.Errorf("rating must be an integer between 0 and 5")
	}
	comment := ""
	if len(args) > 2 {
		comment = strings.Join(args[2:], " ")
	}
	body := fmt.Sprintf(`{"task_id":%q,"rating":%d,"comment":%q}`, args[0], rating, comment)
	var result map[string]any
	if err := c.post(c.queuePath("/feedback"), strings.NewReader(body), &result); err != nil {
		return err
	}
	fmt.Printf("recorded feedback %s for task %s\n", strVal(result["id"]), args[0])
	return nil
}

// --- stats / sla ---

func (c *Client) cmdStats(_ []string) error {
	var st map[string]any
	if err := c.get(c.queuePath("/stats"), &st); err != nil {
		return err
	}
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (c *Client) cmdSLA(_ []string) error {
	var st map[string]any
	if err := c.get(c.queuePath("/sla"), &st); err != nil {
		return err
	}
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// --- helpers ---

func strVal(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
