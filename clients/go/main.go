// ContextStack CLI - command line client for the ContextStack API
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/eldtechnologies/contextstack/clients/go/contextstack"
	"github.com/eldtechnologies/contextstack/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := contextstack.NewClient(os.Getenv("CONTEXTSTACK_URL"))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := os.Args[1]

	switch cmd {
	case "context":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: contextstack context <channel> <message_id> [limit]")
			os.Exit(1)
		}
		limit := 0
		if len(os.Args) > 4 {
			limit = atoi(os.Args[4])
		}
		resp, err := client.GetContext(ctx, os.Args[2], os.Args[3], limit)
		exitOnError(err)
		fmt.Print(contextstack.FormatContext(resp))

	case "messages":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: contextstack messages <channel> [limit]")
			os.Exit(1)
		}
		limit := 20
		if len(os.Args) > 3 {
			limit = atoi(os.Args[3])
		}
		resp, err := client.ListMessages(ctx, os.Args[2], limit)
		exitOnError(err)
		for _, msg := range resp.Messages {
			fmt.Printf("[%s] %s %s: %s\n", msg.CreatedAt.Format("2006-01-02 15:04:05"), msg.MessageID, msg.AuthorName, msg.Text)
		}

	case "channels":
		resp, err := client.ListChannels(ctx)
		exitOnError(err)
		for _, ch := range resp.Channels {
			fmt.Printf("  %s (%d msgs, last %s)\n", ch.ID, ch.MessageCount, ch.LastActive)
		}

	case "tasks":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: contextstack tasks <channel>")
			os.Exit(1)
		}
		resp, err := client.ListTasks(ctx, os.Args[2])
		exitOnError(err)
		for _, t := range resp.Tasks {
			fmt.Printf("  %s  [%s] %s %s\n", t.ID, t.Status, t.Title, t.AssigneeName)
		}

	case "task-add":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: contextstack task-add <channel> <title> [assignee]")
			os.Exit(1)
		}
		task := models.Task{ChannelID: os.Args[2], Title: os.Args[3]}
		if len(os.Args) > 4 {
			task.AssigneeName = os.Args[4]
		}
		resp, err := client.CreateTask(ctx, task)
		exitOnError(err)
		fmt.Printf("Created: %s\n", resp.ID)

	case "task-status":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: contextstack task-status <task_id> <todo|in-progress|done>")
			os.Exit(1)
		}
		resp, err := client.UpdateTaskStatus(ctx, os.Args[2], os.Args[3])
		exitOnError(err)
		fmt.Printf("%s is now %s\n", resp.Title, resp.Status)

	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`ContextStack CLI

Usage: contextstack <command> [options]

Commands:
  context <channel> <message_id> [limit]   Show the context around a message
  messages <channel> [limit]                List recent messages
  channels                                  List channels
  tasks <channel>                           List tasks of a channel
  task-add <channel> <title> [assignee]     Create a task
  task-status <task_id> <status>            Change a task's status
  health                                    Check server health

Environment:
  CONTEXTSTACK_URL   Server URL (default: http://localhost:8080)`)
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %q is not a number\n", s)
		os.Exit(1)
	}
	return n
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
