// attendctl runs device syncs, command fan-out and attendance batches from
// the command line against the same database the server uses. Partial
// failures are reported in the output and still exit 0.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	"github.com/oleeahmmed/hrm/internal/infrastructure/database"
)

const usage = `attendctl - attendance service operator tool

Usage:
  attendctl sync       --device ID [--what users|attendance|all] [--days N] [--subject ID]
  attendctl command    --devices 1,2 --kind KIND [--content TEXT]
  attendctl attendance [--scope S] (--days N | --from YYYY-MM-DD --to YYYY-MM-DD)
  attendctl overtime   [--scope S] (--days N | --from YYYY-MM-DD --to YYYY-MM-DD)
  attendctl config import --file rules.yaml [--scope S] [--activate]
  attendctl expire     [--older-than 30m]

--device 0 syncs every active TCP device. --days -1 covers all data.
`

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		} else {
			fmt.Fprintf(os.Stderr, "attendctl: %v\n", err)
		}
		os.Exit(1)
	}
}

// openFunc 返回服务容器和释放函数，测试可替换
type openFunc func() (*container.ServiceContainer, func(), error)

// openContainer 连接数据库并创建服务容器
func openContainer() (*container.ServiceContainer, func(), error) {
	_ = godotenv.Load()
	cfg := config.GetConfig()
	pool, err := database.NewConnectionPool(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(pool.GetDB()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return container.NewServiceContainer(pool.GetDB(), cfg), func() { pool.Close() }, nil
}

func run(args []string, out io.Writer) error {
	return dispatch(args, out, openContainer)
}

func dispatch(args []string, out io.Writer, open openFunc) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]
	if name == "config" {
		if len(rest) == 0 || rest[0] != "import" {
			return errUsage
		}
		name, rest = "config-import", rest[1:]
	}

	cmd, ok := commands[name]
	if !ok {
		if name == "help" || name == "-h" || name == "--help" {
			fmt.Fprint(out, usage)
			return nil
		}
		return errUsage
	}

	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	exec := cmd(flags)
	if err := flags.Parse(rest); err != nil {
		if err == pflag.ErrHelp {
			fmt.Fprint(out, usage)
			return nil
		}
		return fmt.Errorf("%s: %v: %w", name, err, errUsage)
	}

	c, closeFn, err := open()
	if err != nil {
		return err
	}
	defer closeFn()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return exec(ctx, c, out)
}

// command 注册 flag 并返回执行函数
type command func(flags *pflag.FlagSet) func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error

var commands = map[string]command{
	"sync":          syncCommand,
	"command":       fanoutCommand,
	"attendance":    batchCommand("attendance"),
	"overtime":      batchCommand("overtime"),
	"config-import": importCommand,
	"expire":        expireCommand,
}

func syncCommand(flags *pflag.FlagSet) func(context.Context, *container.ServiceContainer, io.Writer) error {
	device := flags.Uint("device", 0, "device id, 0 for every active TCP device")
	what := flags.String("what", "all", "users, attendance or all")
	days := flags.Int("days", -1, "only punches from the last N days, -1 for all")
	subject := flags.String("subject", "", "only punches of this subject")

	return func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error {
		syncType := models.SyncType(*what)
		switch syncType {
		case models.SyncUsers, models.SyncAttendance, models.SyncAll:
		default:
			return fmt.Errorf("unknown --what %q: %w", *what, errUsage)
		}

		cfg := c.GetService("config").(*config.Config)
		now := c.GetService("clock").(clock.Clock).Now().In(cfg.Location())
		filter := services.SyncDays(*days, now)
		filter.SubjectID = *subject

		ids := []uint{*device}
		if *device == 0 {
			var err error
			if ids, err = pullDevices(c); err != nil {
				return err
			}
		}

		pull := c.GetService("pull_sync").(services.InterfacePullSyncService)
		for _, id := range ids {
			req := services.SyncRequest{DeviceID: id, Type: syncType, Filter: filter}
			log, err := pull.Start(ctx, req)
			if err != nil {
				fmt.Fprintf(out, "device %d: %v\n", id, err)
				continue
			}
			result, err := pull.Run(ctx, log, req)
			if err != nil {
				fmt.Fprintf(out, "device %d: %s failed: %v\n", id, log.RunID, err)
				continue
			}
			fmt.Fprintf(out, "device %d: found %d, synced %d, skipped %d, failed %d\n",
				id, result.Found, result.Synced, result.Skipped, result.Failed)
		}
		return nil
	}
}

// pullDevices 列出所有启用的 TCP 拉取设备
func pullDevices(c *container.ServiceContainer) ([]uint, error) {
	registry := c.GetService("registry").(services.InterfaceRegistryService)
	active := true
	filter := services.DeviceFilter{Active: &active}
	filter.PageNum, filter.PageSize = 1, 200

	var ids []uint
	for {
		devices, total, err := registry.List(filter)
		if err != nil {
			return nil, err
		}
		for i := range devices {
			if devices[i].SupportsPull() {
				ids = append(ids, devices[i].ID)
			}
		}
		if int64(filter.PageNum*filter.PageSize) >= total {
			return ids, nil
		}
		filter.PageNum++
	}
}

func fanoutCommand(flags *pflag.FlagSet) func(context.Context, *container.ServiceContainer, io.Writer) error {
	devices := flags.UintSlice("devices", nil, "comma separated device ids")
	kind := flags.String("kind", "", "command kind, e.g. reboot, sync_time")
	content := flags.String("content", "", "command payload")

	return func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error {
		k := models.CommandKind(*kind)
		if len(*devices) == 0 || !k.Valid() {
			return fmt.Errorf("--devices and a valid --kind are required: %w", errUsage)
		}
		queue := c.GetService("command").(services.InterfaceCommandService)
		result := queue.BulkEnqueue(ctx, *devices, k, *content)
		for id, msg := range result.Errors {
			fmt.Fprintf(out, "device %d: %s\n", id, msg)
		}
		fmt.Fprintf(out, "queued %d, failed %d\n", result.Created, result.Failed)
		return nil
	}
}

// rangeFlags 批处理日期范围
type rangeFlags struct {
	scope *string
	days  *int
	from  *string
	to    *string
}

func addRangeFlags(flags *pflag.FlagSet) rangeFlags {
	return rangeFlags{
		scope: flags.String("scope", "", "scope, defaults to DEFAULT_SCOPE"),
		days:  flags.Int("days", 0, "last N days, 0 for today, -1 for all data"),
		from:  flags.String("from", "", "start date YYYY-MM-DD"),
		to:    flags.String("to", "", "end date YYYY-MM-DD"),
	}
}

func (r rangeFlags) request(flags *pflag.FlagSet) (services.GenerateRequest, error) {
	req := services.GenerateRequest{Scope: *r.scope}
	if *r.from == "" && *r.to == "" {
		req.Days = r.days
		return req, nil
	}
	if flags.Changed("days") {
		return req, fmt.Errorf("--days cannot be combined with --from/--to: %w", errUsage)
	}
	var err error
	if req.From, err = time.Parse("2006-01-02", *r.from); err != nil {
		return req, fmt.Errorf("--from: %v: %w", err, errUsage)
	}
	if req.To, err = time.Parse("2006-01-02", *r.to); err != nil {
		return req, fmt.Errorf("--to: %v: %w", err, errUsage)
	}
	return req, nil
}

func batchCommand(kind string) command {
	return func(flags *pflag.FlagSet) func(context.Context, *container.ServiceContainer, io.Writer) error {
		rng := addRangeFlags(flags)
		return func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error {
			req, err := rng.request(flags)
			if err != nil {
				return err
			}
			var result services.BatchResult
			if kind == "overtime" {
				result, err = c.GetService("overtime").(services.InterfaceOvertimeService).Generate(ctx, req)
			} else {
				result, err = c.GetService("attendance").(services.InterfaceAttendanceService).Generate(ctx, req)
			}
			if err != nil {
				return err
			}
			for _, d := range result.Details {
				fmt.Fprintln(out, d)
			}
			fmt.Fprintf(out, "%s %s %s ~ %s (config %s): %s\n", kind, result.Scope,
				result.From.Format("2006-01-02"), result.To.Format("2006-01-02"), result.ConfigName, result.Message())
			return nil
		}
	}
}

func importCommand(flags *pflag.FlagSet) func(context.Context, *container.ServiceContainer, io.Writer) error {
	file := flags.String("file", "", "YAML rule file")
	scope := flags.String("scope", "", "scope, defaults to DEFAULT_SCOPE")
	activate := flags.Bool("activate", false, "activate after import")

	return func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error {
		if *file == "" {
			return fmt.Errorf("--file is required: %w", errUsage)
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		row, err := c.GetService("rule_config").(services.InterfaceRuleConfigService).ImportYAML(ctx, f, *scope, *activate)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %q into scope %s (id %d, active %t)\n", row.Name, row.Scope, row.ID, row.IsActive)
		return nil
	}
}

func expireCommand(flags *pflag.FlagSet) func(context.Context, *container.ServiceContainer, io.Writer) error {
	olderThan := flags.Duration("older-than", 0, "timeout for sent commands, defaults to COMMAND_TIMEOUT")

	return func(ctx context.Context, c *container.ServiceContainer, out io.Writer) error {
		d := *olderThan
		if d <= 0 {
			d = c.GetService("config").(*config.Config).CommandTimeout
		}
		n, err := c.GetService("command").(services.InterfaceCommandService).ExpireStale(ctx, d)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "expired %d commands\n", n)
		return nil
	}
}
