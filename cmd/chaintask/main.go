package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"chaintask-client/pkg/app"
	"chaintask-client/pkg/config"
	"chaintask-client/pkg/task"
	"chaintask-client/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	utils.GetLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "chaintask",
		Usage: "On-chain to-do list client",
		Commands: []*cli.Command{
			newRegisterCommand(),
			newLoginCommand(),
			newLogoutCommand(),
			newWalletCommand(),
			newTaskCommand(),
			newWatchCommand(),
		},
	}
}

func newRegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "identity", Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.Register(ctx, cmd.String("identity"), cmd.String("email"), cmd.String("password")); err != nil {
				return err
			}
			fmt.Println("Registered. Run `chaintask login` to sign in.")
			return nil
		},
	}
}

func newLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			sess, err := a.Login(ctx, cmd.String("email"), cmd.String("password"))
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", sess.Identity)
			return nil
		},
	}
}

func newLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and clear persisted state",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if err := a.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWalletCommand() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Manage the wallet session",
		Commands: []*cli.Command{
			{
				Name:  "connect",
				Usage: "Unlock the local account and link it",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					a, err := newApp()
					if err != nil {
						return err
					}
					defer a.Close(ctx)

					address, err := a.ConnectWallet(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("Wallet connected: %s\n", address)
					return nil
				},
			},
			{
				Name:  "disconnect",
				Usage: "End the wallet session",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					a, err := newApp()
					if err != nil {
						return err
					}
					defer a.Close(ctx)

					a.DisconnectWallet(ctx)
					fmt.Println("Wallet disconnected.")
					return nil
				},
			},
		},
	}
}

func newTaskCommand() *cli.Command {
	metaFlags := []cli.Flag{
		&cli.StringFlag{Name: "due", Usage: "Due date (2006-01-02)"},
		&cli.StringFlag{Name: "priority", Usage: "Low, Medium or High"},
		&cli.StringFlag{Name: "status", Usage: "Pending, Completed, On Hold or Postponed"},
		&cli.StringFlag{Name: "category"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
	}

	return &cli.Command{
		Name:  "task",
		Usage: "Manage tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks, optionally filtered",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Usage: "Substring match on content"},
					&cli.StringFlag{Name: "status"},
					&cli.StringFlag{Name: "priority"},
					&cli.StringFlag{Name: "tag"},
					&cli.StringFlag{Name: "due", Usage: "All, Overdue, Today or Upcoming"},
				},
				Action: runTaskList,
			},
			{
				Name:      "create",
				Usage:     "Create a task on-chain",
				ArgsUsage: "<content>",
				Flags:     metaFlags,
				Action:    runTaskCreate,
			},
			{
				Name:      "edit",
				Usage:     "Replace a task's content",
				ArgsUsage: "<task_id> <content>",
				Action:    runTaskEdit,
			},
			{
				Name:      "toggle",
				Usage:     "Flip a task's completion flag",
				ArgsUsage: "<task_id>",
				Action:    runTaskToggle,
			},
			{
				Name:      "delete",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    runTaskDelete,
			},
			{
				Name:      "transfer",
				Usage:     "Transfer a task to another address",
				ArgsUsage: "<task_id> <address>",
				Action:    runTaskTransfer,
			},
			{
				Name:      "set-meta",
				Usage:     "Update off-chain metadata only",
				ArgsUsage: "<task_id>",
				Flags:     metaFlags,
				Action:    runTaskSetMeta,
			},
		},
		DefaultCommand: "list",
	}
}

func newWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Follow live task updates until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := connectedApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			tasks, err := a.Fetch(ctx)
			if err != nil {
				return err
			}
			printTasks(tasks)
			fmt.Println("Watching for changes, Ctrl-C to stop...")
			<-ctx.Done()
			return nil
		},
	}
}

func runTaskList(ctx context.Context, cmd *cli.Command) error {
	a, err := connectedApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if _, err := a.Fetch(ctx); err != nil {
		return err
	}

	filter := task.Filter{
		Query:    cmd.String("query"),
		Status:   cmd.String("status"),
		Priority: cmd.String("priority"),
		Tag:      cmd.String("tag"),
		Due:      task.DueBucket(cmd.String("due")),
	}
	if filter.Due != "" && !filter.Due.Valid() {
		return fmt.Errorf("invalid due bucket %q", filter.Due)
	}

	printTasks(a.View(filter))
	return nil
}

func runTaskCreate(ctx context.Context, cmd *cli.Command) error {
	content := strings.TrimSpace(cmd.Args().First())
	if content == "" {
		return fmt.Errorf("usage: chaintask task create <content>")
	}

	if v := cmd.String("priority"); v != "" && !task.Priority(v).Valid() {
		return fmt.Errorf("invalid priority %q", v)
	}
	if v := cmd.String("status"); v != "" && !task.Status(v).Valid() {
		return fmt.Errorf("invalid status %q", v)
	}

	draft := &task.MetadataDraft{
		Content:  content,
		Priority: task.Priority(cmd.String("priority")),
		Status:   task.Status(cmd.String("status")),
		Category: cmd.String("category"),
		Tags:     splitTags(cmd.String("tags")),
	}
	if due := cmd.String("due"); due != "" {
		d, err := task.ParseDateString(due)
		if err != nil {
			return err
		}
		draft.DueDate = &d
	}

	return submitOp(ctx, task.CreateOp(content, draft))
}

func runTaskEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := argTaskID(cmd)
	if err != nil {
		return err
	}
	content := cmd.Args().Get(1)
	if content == "" {
		return fmt.Errorf("usage: chaintask task edit <task_id> <content>")
	}
	return submitOp(ctx, task.EditOp(id, content))
}

func runTaskToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := argTaskID(cmd)
	if err != nil {
		return err
	}
	return submitOp(ctx, task.ToggleOp(id))
}

func runTaskDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := argTaskID(cmd)
	if err != nil {
		return err
	}
	return submitOp(ctx, task.DeleteOp(id))
}

func runTaskTransfer(ctx context.Context, cmd *cli.Command) error {
	id, err := argTaskID(cmd)
	if err != nil {
		return err
	}
	address := cmd.Args().Get(1)
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}
	return submitOp(ctx, task.TransferOp(id, common.HexToAddress(address)))
}

func runTaskSetMeta(ctx context.Context, cmd *cli.Command) error {
	id, err := argTaskID(cmd)
	if err != nil {
		return err
	}

	patch := task.MetadataPatch{}
	if v := cmd.String("priority"); v != "" {
		p := task.Priority(v)
		if !p.Valid() {
			return fmt.Errorf("invalid priority %q", v)
		}
		patch.Priority = &p
	}
	if v := cmd.String("status"); v != "" {
		s := task.Status(v)
		if !s.Valid() {
			return fmt.Errorf("invalid status %q", v)
		}
		patch.Status = &s
	}
	if v := cmd.String("category"); v != "" {
		patch.Category = &v
	}
	if v := cmd.String("tags"); v != "" {
		tags := splitTags(v)
		patch.Tags = &tags
	}
	if v := cmd.String("due"); v != "" {
		d, err := task.ParseDateString(v)
		if err != nil {
			return err
		}
		patch.DueDate = &d
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.PatchMetadata(ctx, id, patch); err != nil {
		return err
	}
	fmt.Println("Metadata updated.")
	return nil
}

func submitOp(ctx context.Context, op task.Operation) error {
	a, err := connectedApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	result, err := a.Submit(ctx, op)
	if err != nil {
		return err
	}
	fmt.Printf("Confirmed in block %d, tx %s, cost %s\n", result.BlockNumber, result.TxHash, result.GasCost)
	return nil
}

func newApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func connectedApp(ctx context.Context) (*app.App, error) {
	a, err := newApp()
	if err != nil {
		return nil, err
	}
	if _, err := a.ConnectWallet(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func argTaskID(cmd *cli.Command) (int64, error) {
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", cmd.Args().First())
	}
	return id, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func printTasks(tasks []task.DisplayTask) {
	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tSTATUS\tPRIORITY\tDUE\tCONTENT")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.TaskID, done, t.Status, t.Priority, due, t.Content)
	}
	w.Flush()
}
