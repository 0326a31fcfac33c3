// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bvk/autotrader/api"
	"github.com/bvk/autotrader/cli"
	"github.com/bvk/autotrader/subcmds/cmdutil"
	"github.com/shirou/gopsutil/v4/process"
)

type Status struct {
	cmdutil.ClientFlags
}

func (c *Status) Synopsis() string {
	return "Prints the trading service status"
}

func (c *Status) Command() (*flag.FlagSet, cli.CmdFunc) {
	fset := flag.NewFlagSet("status", flag.ContinueOnError)
	c.ClientFlags.SetFlags(fset)
	return fset, cli.CmdFunc(c.run)
}

func (c *Status) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("command takes no arguments")
	}

	req := &api.TradeStatusRequest{}
	resp, err := cmdutil.Post[api.TradeStatusResponse](ctx, &c.ClientFlags, api.TradeStatusPath, req)
	if err != nil {
		return err
	}

	if resp.Running {
		fmt.Printf("trading: running with configuration %q\n", resp.ConfigName)
	} else {
		fmt.Println("trading: stopped")
	}
	fmt.Printf("server time: %s\n", resp.ServerTime.Format(time.RFC3339))

	pid, err := c.serverPid(ctx)
	if err != nil {
		// The trading service responded already; process information is
		// best-effort.
		return nil
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	fmt.Printf("server pid: %d\n", pid)
	if createTime, err := p.CreateTimeWithContext(ctx); err == nil {
		started := time.UnixMilli(createTime)
		fmt.Printf("server uptime: %s\n", time.Since(started).Round(time.Second))
	}
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		fmt.Printf("server cpu: %.1f%%\n", cpu)
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil {
		fmt.Printf("server rss: %d MiB\n", mem.RSS/(1024*1024))
	}
	return nil
}

func (c *Status) serverPid(ctx context.Context) (int, error) {
	u := c.ClientFlags.AddressURL()
	u.Path = "/pid"
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.ClientFlags.HttpClient().Do(r)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("http status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(data))
}
