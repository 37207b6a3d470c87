package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/gateway"
)

const clientTimeout = 10 * time.Second

func boardCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Inspect and change a running board",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "board server base URL")

	client := func() *boardClient { return newBoardClient(serverURL) }

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print every column and its tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := client().do(cmd.Context(), http.MethodGet, "/board", nil)
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), view)
		},
	})

	var description string
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to To Do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := client().do(cmd.Context(), http.MethodPost, "/board/tasks", map[string]string{
				"title":       args[0],
				"description": description,
			})
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), view)
		},
	}
	addCmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "move <task-id> <from> <to>",
		Short: "Move a task between columns (todo, in_progress, done)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := client().do(cmd.Context(), http.MethodPost, "/board/moves", map[string]string{
				"taskId": args[0],
				"from":   args[1],
				"to":     args[2],
			})
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), view)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <column> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := client().do(cmd.Context(), http.MethodDelete, boardTaskPath(args[0], args[1]), nil)
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), view)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Re-fetch the task list from the task API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := client().do(cmd.Context(), http.MethodPost, "/board/load", nil)
			if err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), view)
		},
	})

	cmd.AddCommand(remoteCmd())

	return cmd
}

// remoteCmd lists what the task API holds, bypassing the board.
func remoteCmd() *cobra.Command {
	var gatewayURL string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "List the task records stored by the task API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if gatewayURL == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				gatewayURL = cfg.Gateway.URL
			}

			records, err := gateway.New(gatewayURL, clientTimeout).ListTasks(contextOrBackground(cmd.Context()))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Title, r.UpdatedAt)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&gatewayURL, "gateway", "", "task API base URL (defaults to KANBAN_GATEWAY_URL)")

	return cmd
}

// boardTaskPath addresses one task of a column, escaping both segments.
func boardTaskPath(column, taskID string) string {
	return "/board/columns/" + url.PathEscape(column) + "/tasks/" + url.PathEscape(taskID)
}

func printView(out io.Writer, view board.View) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, col := range view.Columns {
		fmt.Fprintf(w, "%s (%d)\n", col.Name, len(col.Tasks))
		for _, t := range col.Tasks {
			line := "  " + t.ID + "\t" + t.Title
			if t.Description != "" {
				line += "\t" + t.Description
			}
			if t.Pending > 0 {
				line += "\t(syncing)"
			}
			fmt.Fprintln(w, line)
		}
	}
	return w.Flush()
}

// boardClient calls the board API of a running server.
type boardClient struct {
	baseURL string
	http    *http.Client
}

func newBoardClient(serverURL string) *boardClient {
	return &boardClient{
		baseURL: strings.TrimRight(serverURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: clientTimeout},
	}
}

func (c *boardClient) do(ctx context.Context, method, path string, body any) (board.View, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return board.View{}, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(contextOrBackground(ctx), method, c.baseURL+path, reader)
	if err != nil {
		return board.View{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return board.View{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return board.View{}, problemError(method, path, resp)
	}

	var view board.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return board.View{}, fmt.Errorf("decode board: %w", err)
	}
	return view, nil
}

// problemError turns a huma error response into a readable error.
func problemError(method, path string, resp *http.Response) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &problem) == nil && problem.Detail != "" {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, problem.Detail)
	}
	return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
